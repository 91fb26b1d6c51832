package queries

import (
	"encoding/json"
	"fmt"

	"github.com/saturnines/issuebench/pkg/gql"
)

// GetIssues is a Paginator for retrieving the remaining open issues (with
// their first page of labels) of a single repository, identified by node
// ID, starting after a given cursor.
type GetIssues struct {
	RepoID        gql.ID
	Cursor        *gql.Cursor
	PageSize      uint
	LabelPageSize uint
}

// ForCursor implements gql.Paginator[IssueWithLabels]. A non-nil cursor
// argument overrides the paginator's own starting cursor.
func (g GetIssues) ForCursor(cursor *gql.Cursor) gql.Selection[gql.Page[IssueWithLabels]] {
	c := g.Cursor
	if cursor != nil {
		c = cursor
	}
	return getIssuesSelection{
		repoID:        g.RepoID,
		cursor:        c,
		pageSize:      g.PageSize,
		labelPageSize: g.LabelPageSize,
	}
}

type getIssuesSelection struct {
	repoID        gql.ID
	cursor        *gql.Cursor
	pageSize      uint
	labelPageSize uint
	prefix        gql.Prefix
}

func (s getIssuesSelection) WithVariablePrefix(prefix string) gql.Selection[gql.Page[IssueWithLabels]] {
	s.prefix = s.prefix.Apply(prefix)
	return s
}

func (s getIssuesSelection) repoIDVar() string { return s.prefix.Name("repo_id") }
func (s getIssuesSelection) cursorVar() string { return s.prefix.Name("cursor") }

func (s getIssuesSelection) WriteGraphQL() (string, error) {
	return fmt.Sprintf(`node(id: $%s) {
    ... on Repository {
        id
        nameWithOwner
        issues(
            first: %d,
            after: $%s,
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
}
`, s.repoIDVar(), s.pageSize, s.cursorVar(), s.labelPageSize), nil
}

func (s getIssuesSelection) Variables() []gql.NamedVariable {
	return []gql.NamedVariable{
		{Name: s.repoIDVar(), Variable: gql.Variable{GQLType: "ID!", Value: string(s.repoID)}},
		{Name: s.cursorVar(), Variable: gql.Variable{GQLType: "String", Value: cursorValue(s.cursor)}},
	}
}

func (s getIssuesSelection) ParseResponse(data json.RawMessage) (gql.Page[IssueWithLabels], error) {
	var body struct {
		NameWithOwner string                  `json:"nameWithOwner"`
		Issues        rawConnection[rawIssue] `json:"issues"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return gql.Page[IssueWithLabels]{}, err
	}
	items := make([]IssueWithLabels, 0, len(body.Issues.Nodes))
	for _, ri := range body.Issues.Nodes {
		items = append(items, ri.convert(body.NameWithOwner))
	}
	return gql.Page[IssueWithLabels]{
		Items:       items,
		EndCursor:   body.Issues.PageInfo.EndCursor,
		HasNextPage: body.Issues.PageInfo.HasNextPage,
	}, nil
}
