package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/saturnines/issuebench/pkg/gql"
)

// Database is a persisted snapshot of repositories and their issues,
// keyed by the server's opaque node ID. The zero value is an empty
// database.
type Database struct {
	repos map[gql.ID]*repoRecord
}

type repoRecord struct {
	Repository  RepoDetails      `json:"repository"`
	IssueCursor *gql.Cursor      `json:"issue_cursor"`
	Issues      map[gql.ID]Issue `json:"issues"`
}

// NewDatabase returns an empty Database.
func NewDatabase() *Database {
	return &Database{repos: make(map[gql.ID]*repoRecord)}
}

// dbFile is the on-disk JSON shape: a flat map, since gql.ID (a string
// type) marshals directly as a JSON object key.
type dbFile map[gql.ID]*repoRecord

// Load reads a Database previously written by Dump.
func Load(r io.Reader) (*Database, error) {
	var file dbFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("load database: %w", err)
	}
	if file == nil {
		file = dbFile{}
	}
	for _, rec := range file {
		if rec.Issues == nil {
			rec.Issues = make(map[gql.ID]Issue)
		}
	}
	return &Database{repos: file}, nil
}

// LoadFile opens path and loads a Database from it. A missing file
// yields an empty Database rather than an error, since the first
// benchmark run against a given store path has nothing to load yet.
func LoadFile(path string) (*Database, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewDatabase(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Dump writes db as pretty-printed JSON followed by a trailing newline.
func (db *Database) Dump(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dbFile(db.repos)); err != nil {
		return fmt.Errorf("dump database: %w", err)
	}
	return nil
}

// DumpFile writes db to path atomically: it writes to a temporary file
// in the same directory and renames it into place, so a crash mid-write
// never leaves a truncated store behind.
func (db *Database) DumpFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp database file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := db.Dump(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp database file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp database file into place: %w", err)
	}
	return nil
}

// UpdateRepositories folds a fresh repository listing into db, per the
// repository half of the diff rule: repositories present in both the
// store and the fresh listing are compared and, if changed, marked
// modified (with their issues bulk-closed if the open-issue count
// dropped to zero); repositories only in the fresh listing are marked
// added; repositories only in the store are marked deleted and dropped.
func (db *Database) UpdateRepositories(fresh []Ided[RepoDetails]) RepoDiff {
	var diff RepoDiff
	seen := make(map[gql.ID]bool, len(fresh))
	if db.repos == nil {
		db.repos = make(map[gql.ID]*repoRecord)
	}

	for _, entry := range fresh {
		seen[entry.ID] = true
		existing, ok := db.repos[entry.ID]
		if !ok {
			db.repos[entry.ID] = &repoRecord{
				Repository: entry.Data,
				Issues:     make(map[gql.ID]Issue),
			}
			diff.Added++
			continue
		}
		if existing.Repository != entry.Data {
			diff.Modified++
			if entry.Data.OpenIssues == 0 {
				diff.ClosedIssues += len(existing.Issues)
				existing.Issues = make(map[gql.ID]Issue)
				existing.IssueCursor = nil
			}
			existing.Repository = entry.Data
		}
	}

	for id := range db.repos {
		if !seen[id] {
			delete(db.repos, id)
			diff.Deleted++
		}
	}
	return diff
}

// SetIssueCursor records the issue-listing cursor a repository's issues
// phase left off at, so a future run can resume with IncludeClosed set.
func (db *Database) SetIssueCursor(repoID gql.ID, cursor *gql.Cursor) {
	if rec, ok := db.repos[repoID]; ok {
		rec.IssueCursor = cursor
	}
}

// IssueCursor returns the stored resume cursor for a repository's issue
// listing, or nil if the repository is unknown or has none stored.
func (db *Database) IssueCursor(repoID gql.ID) *gql.Cursor {
	if rec, ok := db.repos[repoID]; ok {
		return rec.IssueCursor
	}
	return nil
}

// UpdateIssue folds one incoming issue into repoID's stored issue set,
// per the issue half of the diff rule: a Closed issue present in the
// store is removed (open_closed++); a Closed issue absent from the store
// is simply counted (already_closed++); an Open issue present with
// different content replaces the stored copy (modified++); an Open issue
// absent from the store is inserted (added++).
func (db *Database) UpdateIssue(repoID gql.ID, issueID gql.ID, issue Issue) IssueDiff {
	var diff IssueDiff
	rec, ok := db.repos[repoID]
	if !ok {
		return diff
	}
	existing, present := rec.Issues[issueID]
	switch {
	case issue.State == IssueClosed && present:
		diff.OpenClosed++
		delete(rec.Issues, issueID)
	case issue.State == IssueClosed && !present:
		diff.AlreadyClosed++
	case present:
		if existing != issue {
			diff.Modified++
			rec.Issues[issueID] = issue
		}
	default:
		diff.Added++
		rec.Issues[issueID] = issue
	}
	return diff
}

// Repositories returns every repository ID currently tracked, in no
// particular order.
func (db *Database) Repositories() []gql.ID {
	ids := make([]gql.ID, 0, len(db.repos))
	for id := range db.repos {
		ids = append(ids, id)
	}
	return ids
}

// OpenIssueCount reports a repository's last-known open-issue count,
// used to decide whether it is eligible for the issues phase at all.
func (db *Database) OpenIssueCount(repoID gql.ID) uint64 {
	if rec, ok := db.repos[repoID]; ok {
		return rec.Repository.OpenIssues
	}
	return 0
}
