// Package queries holds the Paginator and Selection implementations for
// the four GraphQL queries the benchmark drives: listing an owner's
// repositories (with an embedded first page of issues), listing an
// owner's repositories with only their open-issue counts, listing the
// remaining issues of a repository, and listing the remaining labels of
// an issue. The exact field selections are the hosted service's concern in
// principle, but a concrete shape is provided here so the engine is
// runnable end to end against a GitHub-shaped GraphQL v4 API.
package queries

import "github.com/saturnines/issuebench/pkg/gql"

// rawPageInfo mirrors the GraphQL PageInfo shape.
type rawPageInfo struct {
	EndCursor   *gql.Cursor `json:"endCursor"`
	HasNextPage bool        `json:"hasNextPage"`
}

// rawConnection mirrors a GraphQL connection: a list of nodes plus paging
// info.
type rawConnection[T any] struct {
	Nodes    []T         `json:"nodes"`
	PageInfo rawPageInfo `json:"pageInfo"`
}

func (c rawConnection[T]) page() gql.Page[T] {
	return gql.Page[T]{
		Items:       c.Nodes,
		EndCursor:   c.PageInfo.EndCursor,
		HasNextPage: c.PageInfo.HasNextPage,
	}
}

// Repository is a bare repository descriptor: enough to decide eligibility
// for the issues phase without embedding any issues. Used by the
// "thin repo then fat issues" variant.
type Repository struct {
	ID          gql.ID `json:"id"`
	NameWithOwner string `json:"nameWithOwner"`
	OpenIssues  int    `json:"openIssueCount"`
}

// RepoWithIssues is a repository descriptor plus its first page of open
// issues (each with its own first page of labels). Used by the
// "fat repo then more issues" variant.
type RepoWithIssues struct {
	ID            gql.ID
	NameWithOwner string
	Issues        []IssueWithLabels
	IssueCursor   *gql.Cursor
	HasMoreIssues bool
}

type rawRepoWithIssues struct {
	ID            gql.ID                    `json:"id"`
	NameWithOwner string                    `json:"nameWithOwner"`
	Issues        rawConnection[rawIssue]   `json:"issues"`
}

func (r rawRepoWithIssues) convert() RepoWithIssues {
	issues := make([]IssueWithLabels, 0, len(r.Issues.Nodes))
	for _, ri := range r.Issues.Nodes {
		issues = append(issues, ri.convert(r.NameWithOwner))
	}
	return RepoWithIssues{
		ID:            r.ID,
		NameWithOwner: r.NameWithOwner,
		Issues:        issues,
		IssueCursor:   r.Issues.PageInfo.EndCursor,
		HasMoreIssues: r.Issues.PageInfo.HasNextPage,
	}
}

type rawLabel struct {
	Name string `json:"name"`
}

type rawIssue struct {
	ID        gql.ID                  `json:"id"`
	Number    uint64                  `json:"number"`
	Title     string                  `json:"title"`
	URL       string                  `json:"url"`
	CreatedAt string                  `json:"createdAt"`
	UpdatedAt string                  `json:"updatedAt"`
	Labels    rawConnection[rawLabel] `json:"labels"`
}

func (ri rawIssue) convert(repo string) IssueWithLabels {
	labels := make([]string, 0, len(ri.Labels.Nodes))
	for _, l := range ri.Labels.Nodes {
		labels = append(labels, l.Name)
	}
	return IssueWithLabels{
		Issue: Issue{
			Repo:      repo,
			ID:        ri.ID,
			Number:    ri.Number,
			Title:     ri.Title,
			URL:       ri.URL,
			CreatedAt: ri.CreatedAt,
			UpdatedAt: ri.UpdatedAt,
			Labels:    labels,
		},
		LabelCursor:   ri.Labels.PageInfo.EndCursor,
		HasMoreLabels: ri.Labels.PageInfo.HasNextPage,
	}
}

// Issue is a finished, fully-labeled issue record ready for output.
type Issue struct {
	Repo      string
	ID        gql.ID
	Number    uint64
	Title     string
	URL       string
	CreatedAt string
	UpdatedAt string
	Labels    []string
}

// IssueWithLabels is an Issue together with pagination state for any
// labels not yet fetched. MoreLabelsQuery returns a GetLabels paginator
// when HasMoreLabels is true, nil otherwise.
type IssueWithLabels struct {
	Issue         Issue
	LabelCursor   *gql.Cursor
	HasMoreLabels bool
}

// MoreLabelsQuery returns a paginator for the labels beyond this issue's
// first page, or nil if the first page was already complete.
func (iwl IssueWithLabels) MoreLabelsQuery(labelPageSize uint) *GetLabels {
	if !iwl.HasMoreLabels {
		return nil
	}
	return &GetLabels{
		IssueID:       iwl.Issue.ID,
		Cursor:        iwl.LabelCursor,
		LabelPageSize: labelPageSize,
	}
}
