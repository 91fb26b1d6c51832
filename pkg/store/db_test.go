package store

import (
	"bytes"
	"testing"

	"github.com/saturnines/issuebench/pkg/gql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateRepositoriesAddedModifiedDeleted(t *testing.T) {
	db := NewDatabase()

	diff := db.UpdateRepositories([]Ided[RepoDetails]{
		{ID: "r1", Data: RepoDetails{Owner: "acme", Name: "one", OpenIssues: 3}},
		{ID: "r2", Data: RepoDetails{Owner: "acme", Name: "two", OpenIssues: 0}},
	})
	assert.Equal(t, RepoDiff{Added: 2}, diff)

	// r1 changes issue count, r2 disappears, r3 is new.
	diff = db.UpdateRepositories([]Ided[RepoDetails]{
		{ID: "r1", Data: RepoDetails{Owner: "acme", Name: "one", OpenIssues: 5}},
		{ID: "r3", Data: RepoDetails{Owner: "acme", Name: "three", OpenIssues: 1}},
	})
	assert.Equal(t, RepoDiff{Modified: 1, Added: 1, Deleted: 1}, diff)
	assert.ElementsMatch(t, []gql.ID{"r1", "r3"}, db.Repositories())
}

func TestUpdateRepositoriesClosesIssuesWhenCountDropsToZero(t *testing.T) {
	db := NewDatabase()
	db.UpdateRepositories([]Ided[RepoDetails]{
		{ID: "r1", Data: RepoDetails{Owner: "acme", Name: "one", OpenIssues: 2}},
	})
	db.UpdateIssue("r1", "i1", Issue{Number: 1, State: IssueOpen})
	db.UpdateIssue("r1", "i2", Issue{Number: 2, State: IssueOpen})

	diff := db.UpdateRepositories([]Ided[RepoDetails]{
		{ID: "r1", Data: RepoDetails{Owner: "acme", Name: "one", OpenIssues: 0}},
	})
	assert.Equal(t, RepoDiff{Modified: 1, ClosedIssues: 2}, diff)
	assert.Equal(t, uint64(0), db.OpenIssueCount("r1"))
}

func TestUpdateIssueDiffRules(t *testing.T) {
	db := NewDatabase()
	db.UpdateRepositories([]Ided[RepoDetails]{
		{ID: "r1", Data: RepoDetails{Owner: "acme", Name: "one", OpenIssues: 1}},
	})

	// Open, absent -> added.
	diff := db.UpdateIssue("r1", "i1", Issue{Number: 1, Title: "a", State: IssueOpen})
	assert.Equal(t, IssueDiff{Added: 1}, diff)

	// Open, present, unchanged -> no-op.
	diff = db.UpdateIssue("r1", "i1", Issue{Number: 1, Title: "a", State: IssueOpen})
	assert.Equal(t, IssueDiff{}, diff)

	// Open, present, changed -> modified.
	diff = db.UpdateIssue("r1", "i1", Issue{Number: 1, Title: "b", State: IssueOpen})
	assert.Equal(t, IssueDiff{Modified: 1}, diff)

	// Closed, present -> open_closed, and removed from the store.
	diff = db.UpdateIssue("r1", "i1", Issue{Number: 1, Title: "b", State: IssueClosed})
	assert.Equal(t, IssueDiff{OpenClosed: 1}, diff)

	// Closed, absent -> already_closed.
	diff = db.UpdateIssue("r1", "i1", Issue{Number: 1, Title: "b", State: IssueClosed})
	assert.Equal(t, IssueDiff{AlreadyClosed: 1}, diff)
}

func TestDiffAccumulatorsAreSummable(t *testing.T) {
	var total RepoDiff
	total.Add(RepoDiff{Added: 1})
	total.Add(RepoDiff{Modified: 2, ClosedIssues: 3})
	assert.Equal(t, RepoDiff{Added: 1, Modified: 2, ClosedIssues: 3}, total)
	assert.Equal(t, 3, total.ReposTouched())
}

func TestDumpLoadRoundTrip(t *testing.T) {
	db := NewDatabase()
	db.UpdateRepositories([]Ided[RepoDetails]{
		{ID: "r1", Data: RepoDetails{Owner: "acme", Name: "one", OpenIssues: 1}},
	})
	db.UpdateIssue("r1", "i1", Issue{Number: 1, Title: "hello", State: IssueOpen})
	cursor := gql.Cursor("abc")
	db.SetIssueCursor("r1", &cursor)

	var buf bytes.Buffer
	require.NoError(t, db.Dump(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded.OpenIssueCount("r1"))
	require.NotNil(t, loaded.IssueCursor("r1"))
	assert.Equal(t, cursor, *loaded.IssueCursor("r1"))

	// The reloaded database matches what was dumped: re-updating it with
	// the same repository listing produces no diff.
	diff := loaded.UpdateRepositories([]Ided[RepoDetails]{
		{ID: "r1", Data: RepoDetails{Owner: "acme", Name: "one", OpenIssues: 1}},
	})
	assert.Equal(t, RepoDiff{}, diff)
}

func TestLoadFileMissingYieldsEmptyDatabase(t *testing.T) {
	db, err := LoadFile("/nonexistent/path/does-not-exist.json")
	require.NoError(t, err)
	assert.Empty(t, db.Repositories())
}
