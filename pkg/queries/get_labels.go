package queries

import (
	"encoding/json"
	"fmt"

	"github.com/saturnines/issuebench/pkg/gql"
)

// GetLabels is a Paginator for retrieving the remaining labels of a single
// issue, identified by node ID, starting after a given cursor.
type GetLabels struct {
	IssueID       gql.ID
	Cursor        *gql.Cursor
	LabelPageSize uint
}

// ForCursor implements gql.Paginator[string].
func (g GetLabels) ForCursor(cursor *gql.Cursor) gql.Selection[gql.Page[string]] {
	c := g.Cursor
	if cursor != nil {
		c = cursor
	}
	return getLabelsSelection{
		issueID:       g.IssueID,
		cursor:        c,
		labelPageSize: g.LabelPageSize,
	}
}

type getLabelsSelection struct {
	issueID       gql.ID
	cursor        *gql.Cursor
	labelPageSize uint
	prefix        gql.Prefix
}

func (s getLabelsSelection) WithVariablePrefix(prefix string) gql.Selection[gql.Page[string]] {
	s.prefix = s.prefix.Apply(prefix)
	return s
}

func (s getLabelsSelection) issueIDVar() string { return s.prefix.Name("issue_id") }
func (s getLabelsSelection) cursorVar() string  { return s.prefix.Name("cursor") }

func (s getLabelsSelection) WriteGraphQL() (string, error) {
	return fmt.Sprintf(`node(id: $%s) {
    ... on Issue {
        labels(
            first: %d,
            after: $%s,
        ) {
            nodes { name }
            pageInfo { endCursor hasNextPage }
        }
    }
}
`, s.issueIDVar(), s.labelPageSize, s.cursorVar()), nil
}

func (s getLabelsSelection) Variables() []gql.NamedVariable {
	return []gql.NamedVariable{
		{Name: s.issueIDVar(), Variable: gql.Variable{GQLType: "ID!", Value: string(s.issueID)}},
		{Name: s.cursorVar(), Variable: gql.Variable{GQLType: "String", Value: cursorValue(s.cursor)}},
	}
}

func (s getLabelsSelection) ParseResponse(data json.RawMessage) (gql.Page[string], error) {
	var body struct {
		Labels rawConnection[rawLabel] `json:"labels"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return gql.Page[string]{}, err
	}
	names := make([]string, 0, len(body.Labels.Nodes))
	for _, l := range body.Labels.Nodes {
		names = append(names, l.Name)
	}
	return gql.Page[string]{
		Items:       names,
		EndCursor:   body.Labels.PageInfo.EndCursor,
		HasNextPage: body.Labels.PageInfo.HasNextPage,
	}, nil
}
