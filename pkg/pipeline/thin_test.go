package pipeline

import (
	"strings"
	"testing"
)

// TestThinRepoWithOpenIssuesFansOutToIssuesPhase exercises the defining
// difference from OrgsWithIssues: a repository descriptor carries only an
// open-issue count, so eligibility for the issues phase is decided from
// that count rather than an embedded issues page, and every issue (not
// just an overflow) is fetched in the FetchIssues phase.
func TestThinRepoWithOpenIssuesFansOutToIssuesPhase(t *testing.T) {
	sink := &sinkRecorder{}
	m := NewOrgsThenIssues([]string{"acme"}, Parameters{}, sink)

	if _, err := m.GetNextQuery(); err != nil {
		t.Fatalf("GetNextQuery: %v", err)
	}

	reposBody := map[string]any{
		"q0": map[string]any{
			"repositories": map[string]any{
				"nodes": []any{
					map[string]any{
						"id":             "R_1",
						"nameWithOwner":  "acme/one",
						"openIssueCount": map[string]any{"totalCount": 2},
					},
				},
				"pageInfo": map[string]any{"endCursor": nil, "hasNextPage": false},
			},
		},
	}
	if err := m.HandleResponse(marshal(t, reposBody)); err != nil {
		t.Fatalf("HandleResponse repos: %v", err)
	}

	query, err := m.GetNextQuery()
	if err != nil {
		t.Fatalf("issues-phase GetNextQuery: %v", err)
	}
	if query == nil {
		t.Fatal("expected an issues-phase query since the repo has open issues")
	}
	if !strings.Contains(query.Document, "$q0_repo_id") {
		t.Fatalf("expected the repository aliased as q0 in the issues phase:\n%s", query.Document)
	}
	if query.Variables["q0_repo_id"] != "R_1" {
		t.Errorf("q0_repo_id = %v, want R_1", query.Variables["q0_repo_id"])
	}

	issuesBody := map[string]any{
		"q0": map[string]any{
			"nameWithOwner": "acme/one",
			"issues": map[string]any{
				"nodes": []any{
					issueNode("I_1", 1, "first", nil),
					issueNode("I_2", 2, "second", nil),
				},
				"pageInfo": map[string]any{"endCursor": nil, "hasNextPage": false},
			},
		},
	}
	if err := m.HandleResponse(marshal(t, issuesBody)); err != nil {
		t.Fatalf("HandleResponse issues: %v", err)
	}

	query, err = m.GetNextQuery()
	if err != nil {
		t.Fatalf("final GetNextQuery: %v", err)
	}
	if query != nil {
		t.Fatalf("expected no labels-phase query, all labels already fit; got %+v", query)
	}
	if !sink.done {
		t.Error("expected OnDone")
	}

	var issueIDs []string
	var report FetchReport
	for _, o := range m.GetOutput() {
		switch o.Kind {
		case OutputIssues:
			for _, iss := range o.Issues {
				issueIDs = append(issueIDs, string(iss.ID))
			}
		case OutputReport:
			report = o.Report
		}
	}
	if len(issueIDs) != 2 {
		t.Fatalf("expected both issues emitted, got %v", issueIDs)
	}
	if report.Repositories != 1 || report.OpenIssues != 2 || report.ExtraIssues != 2 || report.ReposWithExtraIssues != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

// TestThinRepoWithNoOpenIssuesSkipsIssuesPhase confirms eligibility is
// gated purely on the open-issue count, with no embedded page to inspect.
func TestThinRepoWithNoOpenIssuesSkipsIssuesPhase(t *testing.T) {
	sink := &sinkRecorder{}
	m := NewOrgsThenIssues([]string{"acme"}, Parameters{}, sink)

	if _, err := m.GetNextQuery(); err != nil {
		t.Fatalf("GetNextQuery: %v", err)
	}
	reposBody := map[string]any{
		"q0": map[string]any{
			"repositories": map[string]any{
				"nodes": []any{
					map[string]any{
						"id":             "R_1",
						"nameWithOwner":  "acme/one",
						"openIssueCount": map[string]any{"totalCount": 0},
					},
				},
				"pageInfo": map[string]any{"endCursor": nil, "hasNextPage": false},
			},
		},
	}
	if err := m.HandleResponse(marshal(t, reposBody)); err != nil {
		t.Fatalf("HandleResponse: %v", err)
	}

	query, err := m.GetNextQuery()
	if err != nil {
		t.Fatalf("GetNextQuery: %v", err)
	}
	if query != nil {
		t.Fatalf("expected no issues-phase query, got %+v", query)
	}
	if !sink.done {
		t.Error("expected OnDone")
	}
}
