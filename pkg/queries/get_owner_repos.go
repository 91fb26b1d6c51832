package queries

import (
	"encoding/json"
	"fmt"

	"github.com/saturnines/issuebench/pkg/gql"
)

// GetOwnerRepos is a Paginator for retrieving public, non-archived,
// non-fork repositories owned by a given login, along with the first page
// of each repository's open issues (and each issue's first page of
// labels). It backs the "fat repo then more issues" pipeline variant.
type GetOwnerRepos struct {
	Owner         string
	PageSize      uint
	LabelPageSize uint
}

// ForCursor implements gql.Paginator[RepoWithIssues].
func (g GetOwnerRepos) ForCursor(cursor *gql.Cursor) gql.Selection[gql.Page[RepoWithIssues]] {
	return getOwnerReposSelection{
		owner:         g.Owner,
		cursor:        cursor,
		pageSize:      g.PageSize,
		labelPageSize: g.LabelPageSize,
	}
}

type getOwnerReposSelection struct {
	owner         string
	cursor        *gql.Cursor
	pageSize      uint
	labelPageSize uint
	prefix        gql.Prefix
}

func (s getOwnerReposSelection) WithVariablePrefix(prefix string) gql.Selection[gql.Page[RepoWithIssues]] {
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
            nameWithOwner
            issues(
                first: %d,
                orderBy: {field: CREATED_AT, direction: ASC},
                states: [OPEN],
            ) {
                nodes {
                    id
                    number
                    title
                    url
                    createdAt
                    updatedAt
                    labels(first: %d) {
                        nodes { name }
                        pageInfo { endCursor hasNextPage }
                    }
                }
                pageInfo { endCursor hasNextPage }
            }
        }
        pageInfo { endCursor hasNextPage }
    }
}
`, s.ownerVar(), s.pageSize, s.cursorVar(), s.pageSize, s.labelPageSize), nil
}

func (s getOwnerReposSelection) Variables() []gql.NamedVariable {
	return []gql.NamedVariable{
		{Name: s.ownerVar(), Variable: gql.Variable{GQLType: "String!", Value: s.owner}},
		{Name: s.cursorVar(), Variable: gql.Variable{GQLType: "String", Value: cursorValue(s.cursor)}},
	}
}

func (s getOwnerReposSelection) ParseResponse(data json.RawMessage) (gql.Page[RepoWithIssues], error) {
	var body struct {
		Repositories rawConnection[rawRepoWithIssues] `json:"repositories"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return gql.Page[RepoWithIssues]{}, err
	}
	items := make([]RepoWithIssues, 0, len(body.Repositories.Nodes))
	for _, n := range body.Repositories.Nodes {
		items = append(items, n.convert())
	}
	return gql.Page[RepoWithIssues]{
		Items:       items,
		EndCursor:   body.Repositories.PageInfo.EndCursor,
		HasNextPage: body.Repositories.PageInfo.HasNextPage,
	}, nil
}

// GetOwnerReposThin is a Paginator for retrieving repository descriptors
// only (no embedded issues), used by the "thin repo then fat issues"
// pipeline variant. Eligibility for the issues phase is decided from
// Repository.OpenIssues rather than an embedded page.
type GetOwnerReposThin struct {
	Owner    string
	PageSize uint
}

// ForCursor implements gql.Paginator[Repository].
func (g GetOwnerReposThin) ForCursor(cursor *gql.Cursor) gql.Selection[gql.Page[Repository]] {
	return getOwnerReposThinSelection{
		owner:    g.Owner,
		cursor:   cursor,
		pageSize: g.PageSize,
	}
}

type getOwnerReposThinSelection struct {
	owner    string
	cursor   *gql.Cursor
	pageSize uint
	prefix   gql.Prefix
}

func (s getOwnerReposThinSelection) WithVariablePrefix(prefix string) gql.Selection[gql.Page[Repository]] {
	s.prefix = s.prefix.Apply(prefix)
	return s
}

func (s getOwnerReposThinSelection) ownerVar() string  { return s.prefix.Name("owner") }
func (s getOwnerReposThinSelection) cursorVar() string { return s.prefix.Name("cursor") }

func (s getOwnerReposThinSelection) WriteGraphQL() (string, error) {
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
            nameWithOwner
            openIssueCount: issues(states: [OPEN]) { totalCount }
        }
        pageInfo { endCursor hasNextPage }
    }
}
`, s.ownerVar(), s.pageSize, s.cursorVar()), nil
}

func (s getOwnerReposThinSelection) Variables() []gql.NamedVariable {
	return []gql.NamedVariable{
		{Name: s.ownerVar(), Variable: gql.Variable{GQLType: "String!", Value: s.owner}},
		{Name: s.cursorVar(), Variable: gql.Variable{GQLType: "String", Value: cursorValue(s.cursor)}},
	}
}

func (s getOwnerReposThinSelection) ParseResponse(data json.RawMessage) (gql.Page[Repository], error) {
	var body struct {
		Repositories rawConnection[thinRepoNode] `json:"repositories"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return gql.Page[Repository]{}, err
	}
	items := make([]Repository, 0, len(body.Repositories.Nodes))
	for _, n := range body.Repositories.Nodes {
		items = append(items, Repository{ID: n.ID, NameWithOwner: n.NameWithOwner, OpenIssues: n.OpenIssueCount.TotalCount})
	}
	return gql.Page[Repository]{
		Items:       items,
		EndCursor:   body.Repositories.PageInfo.EndCursor,
		HasNextPage: body.Repositories.PageInfo.HasNextPage,
	}, nil
}

type thinRepoNode struct {
	ID             gql.ID `json:"id"`
	NameWithOwner  string `json:"nameWithOwner"`
	OpenIssueCount struct {
		TotalCount int `json:"totalCount"`
	} `json:"openIssueCount"`
}

// cursorValue converts an optional Cursor to a JSON-marshalable value,
// nil when absent so the server sees an omitted "after" argument.
func cursorValue(c *gql.Cursor) any {
	if c == nil {
		return nil
	}
	return string(*c)
}
