// Package store implements the optional incremental update-store
// extension: a persisted snapshot of repositories and their issues, and
// the diff accumulators a benchmark run can feed as it discovers fresh
// data. Nothing in the core engine (gql/batch/machine/pipeline) depends
// on this package; it is a consumer built on top of it, the same way a
// caller could persist results anywhere else.
package store

import (
	"fmt"

	"github.com/saturnines/issuebench/pkg/gql"
)

// RepoDetails is the subset of a repository's descriptor the store
// tracks for change detection.
type RepoDetails struct {
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	OpenIssues uint64 `json:"open_issues"`
}

// IssueState is an issue's open/closed status as reported by the server.
type IssueState string

const (
	IssueOpen   IssueState = "OPEN"
	IssueClosed IssueState = "CLOSED"
)

// Issue is the subset of an issue's fields the store tracks. Labels are
// deliberately omitted: the original store this is modeled on notes the
// GitHub-documented 100-label cap makes them large enough to not be
// worth diffing.
type Issue struct {
	Number    uint64     `json:"number"`
	Title     string     `json:"title"`
	State     IssueState `json:"state"`
	URL       string     `json:"url"`
	CreatedAt string     `json:"createdAt"`
	UpdatedAt string     `json:"updatedAt"`
}

// RepoDiff accumulates the effect of one UpdateRepositories call. It is
// monotone (fields only increase) and summable across batches.
type RepoDiff struct {
	Added        int
	Modified     int
	Deleted      int
	ClosedIssues int
}

// ReposTouched is the count of repositories whose record changed in any
// way (added, modified, or deleted).
func (d RepoDiff) ReposTouched() int {
	return d.Added + d.Modified + d.Deleted
}

// Add folds other into d.
func (d *RepoDiff) Add(other RepoDiff) {
	d.Added += other.Added
	d.Modified += other.Modified
	d.Deleted += other.Deleted
	d.ClosedIssues += other.ClosedIssues
}

func (d RepoDiff) String() string {
	return fmt.Sprintf(
		"%d repositories added, %d repositories modified, %d repositories deleted, %d issues bulk closed",
		d.Added, d.Modified, d.Deleted, d.ClosedIssues,
	)
}

// IssueDiff accumulates the effect of one UpdateIssue call. Like
// RepoDiff, it is monotone and summable across batches.
type IssueDiff struct {
	Added         int
	Modified      int
	OpenClosed    int
	AlreadyClosed int
}

// IssuesTouched is the count of issues whose stored record changed
// (added, modified, or newly closed).
func (d IssueDiff) IssuesTouched() int {
	return d.Added + d.Modified + d.OpenClosed
}

// Add folds other into d.
func (d *IssueDiff) Add(other IssueDiff) {
	d.Added += other.Added
	d.Modified += other.Modified
	d.OpenClosed += other.OpenClosed
	d.AlreadyClosed += other.AlreadyClosed
}

func (d IssueDiff) String() string {
	return fmt.Sprintf(
		"%d issues added, %d issues modified, %d open issues closed, %d issues already closed",
		d.Added, d.Modified, d.OpenClosed, d.AlreadyClosed,
	)
}

// Ided pairs a gql.ID with the record it identifies, mirroring the shape
// GraphQL node listings return.
type Ided[T any] struct {
	ID   gql.ID
	Data T
}
