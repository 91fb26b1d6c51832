package store

import (
	"encoding/json"
	"fmt"

	"github.com/saturnines/issuebench/pkg/gql"
)

// GetOwnerRepos is a Paginator for the store's own repository listing: it
// splits owner/name (rather than the benchmark pipeline's combined
// nameWithOwner) because the store records owner and name as separate
// fields, and it fetches only the open-issue count, with no embedded
// issues, since the store fetches issues in a separate phase, for the
// repositories with open issues only.
type GetOwnerRepos struct {
	Owner    string
	PageSize uint
}

func (g GetOwnerRepos) ForCursor(cursor *gql.Cursor) gql.Selection[gql.Page[Ided[RepoDetails]]] {
	return getOwnerReposSelection{owner: g.Owner, cursor: cursor, pageSize: g.PageSize}
}

type getOwnerReposSelection struct {
	owner    string
	cursor   *gql.Cursor
	pageSize uint
	prefix   gql.Prefix
}

func (s getOwnerReposSelection) WithVariablePrefix(prefix string) gql.Selection[gql.Page[Ided[RepoDetails]]] {
	s.prefix = s.prefix.Apply(prefix)
	return s
}

func (s getOwnerReposSelection) ownerVar() string  { return s.prefix.Name("owner") }
func (s getOwnerReposSelection) cursorVar() string { return s.prefix.Name("cursor") }

func (s getOwnerReposSelection) WriteGraphQL() (string, error) {
	return fmt.Sprintf(`repositoryOwner(login: $%s) {
    repositories(
        orderBy: {field: NAME, direction: ASC},
        ownerAffiliations: [OWNER],
        isArchived: false,
        isFork: false,
        privacy: PUBLIC,
        first: %d,
        after: $%s,
    ) {
        nodes {
            id
            owner { login }
            name
            openIssues: issues(states: [OPEN]) { totalCount }
        }
        pageInfo { endCursor hasNextPage }
    }
}
`, s.ownerVar(), s.pageSize, s.cursorVar()), nil
}

func (s getOwnerReposSelection) Variables() []gql.NamedVariable {
	return []gql.NamedVariable{
		{Name: s.ownerVar(), Variable: gql.Variable{GQLType: "String!", Value: s.owner}},
		{Name: s.cursorVar(), Variable: gql.Variable{GQLType: "String", Value: cursorValue(s.cursor)}},
	}
}

type rawOwnerNode struct {
	ID    gql.ID `json:"id"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	Name        string `json:"name"`
	OpenIssues  struct {
		TotalCount uint64 `json:"totalCount"`
	} `json:"openIssues"`
}

func (s getOwnerReposSelection) ParseResponse(data json.RawMessage) (gql.Page[Ided[RepoDetails]], error) {
	var body struct {
		Repositories struct {
			Nodes    []rawOwnerNode `json:"nodes"`
			PageInfo struct {
				EndCursor   *gql.Cursor `json:"endCursor"`
				HasNextPage bool        `json:"hasNextPage"`
			} `json:"pageInfo"`
		} `json:"repositories"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return gql.Page[Ided[RepoDetails]]{}, err
	}
	items := make([]Ided[RepoDetails], 0, len(body.Repositories.Nodes))
	for _, n := range body.Repositories.Nodes {
		items = append(items, Ided[RepoDetails]{
			ID: n.ID,
			Data: RepoDetails{
				Owner:      n.Owner.Login,
				Name:       n.Name,
				OpenIssues: n.OpenIssues.TotalCount,
			},
		})
	}
	return gql.Page[Ided[RepoDetails]]{
		Items:       items,
		EndCursor:   body.Repositories.PageInfo.EndCursor,
		HasNextPage: body.Repositories.PageInfo.HasNextPage,
	}, nil
}

// GetIssues is a Paginator for the store's issues phase. Unlike the
// benchmark pipeline's GetIssues, it requests the issue's state and, once
// resuming from a stored cursor (IncludeClosed), widens the states filter
// to include CLOSED issues too, so a state transition from open to closed
// is observed rather than silently dropped off the listing.
type GetIssues struct {
	RepoID        gql.ID
	Cursor        *gql.Cursor
	PageSize      uint
	IncludeClosed bool
}

func (g GetIssues) ForCursor(cursor *gql.Cursor) gql.Selection[gql.Page[Ided[Issue]]] {
	c := g.Cursor
	if cursor != nil {
		c = cursor
	}
	return getIssuesSelection{repoID: g.RepoID, cursor: c, pageSize: g.PageSize, includeClosed: g.IncludeClosed}
}

type getIssuesSelection struct {
	repoID        gql.ID
	cursor        *gql.Cursor
	pageSize      uint
	includeClosed bool
	prefix        gql.Prefix
}

func (s getIssuesSelection) WithVariablePrefix(prefix string) gql.Selection[gql.Page[Ided[Issue]]] {
	s.prefix = s.prefix.Apply(prefix)
	return s
}

func (s getIssuesSelection) repoIDVar() string { return s.prefix.Name("repo_id") }
func (s getIssuesSelection) cursorVar() string { return s.prefix.Name("cursor") }

func (s getIssuesSelection) states() string {
	if s.includeClosed {
		return "OPEN, CLOSED"
	}
	return "OPEN"
}

func (s getIssuesSelection) WriteGraphQL() (string, error) {
	return fmt.Sprintf(`node(id: $%s) {
    ... on Repository {
        issues(
            first: %d,
            after: $%s,
            orderBy: {field: UPDATED_AT, direction: ASC},
            states: [%s],
        ) {
            nodes {
                id
                number
                title
                state
                url
                createdAt
                updatedAt
            }
            pageInfo { endCursor hasNextPage }
        }
    }
}
`, s.repoIDVar(), s.pageSize, s.cursorVar(), s.states()), nil
}

func (s getIssuesSelection) Variables() []gql.NamedVariable {
	return []gql.NamedVariable{
		{Name: s.repoIDVar(), Variable: gql.Variable{GQLType: "ID!", Value: s.repoID}},
		{Name: s.cursorVar(), Variable: gql.Variable{GQLType: "String", Value: cursorValue(s.cursor)}},
	}
}

type rawStoreIssue struct {
	ID        gql.ID     `json:"id"`
	Number    uint64     `json:"number"`
	Title     string     `json:"title"`
	State     IssueState `json:"state"`
	URL       string     `json:"url"`
	CreatedAt string     `json:"createdAt"`
	UpdatedAt string     `json:"updatedAt"`
}

func (s getIssuesSelection) ParseResponse(data json.RawMessage) (gql.Page[Ided[Issue]], error) {
	var body struct {
		Issues struct {
			Nodes    []rawStoreIssue `json:"nodes"`
			PageInfo struct {
				EndCursor   *gql.Cursor `json:"endCursor"`
				HasNextPage bool        `json:"hasNextPage"`
			} `json:"pageInfo"`
		} `json:"issues"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return gql.Page[Ided[Issue]]{}, err
	}
	items := make([]Ided[Issue], 0, len(body.Issues.Nodes))
	for _, n := range body.Issues.Nodes {
		items = append(items, Ided[Issue]{
			ID: n.ID,
			Data: Issue{
				Number:    n.Number,
				Title:     n.Title,
				State:     n.State,
				URL:       n.URL,
				CreatedAt: n.CreatedAt,
				UpdatedAt: n.UpdatedAt,
			},
		})
	}
	return gql.Page[Ided[Issue]]{
		Items:       items,
		EndCursor:   body.Issues.PageInfo.EndCursor,
		HasNextPage: body.Issues.PageInfo.HasNextPage,
	}, nil
}

func cursorValue(c *gql.Cursor) any {
	if c == nil {
		return nil
	}
	return string(*c)
}
