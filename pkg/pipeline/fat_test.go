package pipeline

import (
	"encoding/json"
	"strings"
	"testing"
)

// sinkRecorder collects every Transition and Done signal a pipeline machine
// emits, for assertions independent of the Output stream.
type sinkRecorder struct {
	transitions []Transition
	done        bool
}

func (s *sinkRecorder) OnEvent(t Transition) { s.transitions = append(s.transitions, t) }
func (s *sinkRecorder) OnDone()              { s.done = true }

// TestEmptyOwnerListYieldsOnlyZeroReport is scenario 1: an empty owner list
// reaches Done on the very first GetNextQuery, producing exactly one
// all-zeros Report and no transitions.
func TestEmptyOwnerListYieldsOnlyZeroReport(t *testing.T) {
	sink := &sinkRecorder{}
	m := NewOrgsWithIssues(nil, Parameters{}, sink)

	query, err := m.GetNextQuery()
	if err != nil {
		t.Fatalf("GetNextQuery: %v", err)
	}
	if query != nil {
		t.Fatalf("expected no query for an empty owner list, got %+v", query)
	}
	if !sink.done {
		t.Error("expected OnDone to fire")
	}
	if len(sink.transitions) != 0 {
		t.Errorf("expected no transitions, got %+v", sink.transitions)
	}

	out := m.GetOutput()
	if len(out) != 1 || out[0].Kind != OutputReport {
		t.Fatalf("expected exactly one Report output, got %+v", out)
	}
	if out[0].Report != (FetchReport{}) {
		t.Errorf("expected an all-zeros report, got %+v", out[0].Report)
	}
}

// TestTwoOwnersNoRepositoriesEndsWithZeroReport is scenario 2: two owners
// with empty repository pages transition straight from StartFetchRepos to
// EndFetchRepos with every count at zero, then Done with a zero Report.
func TestTwoOwnersNoRepositoriesEndsWithZeroReport(t *testing.T) {
	sink := &sinkRecorder{}
	m := NewOrgsWithIssues([]string{"acme", "widgets"}, Parameters{}, sink)

	query, err := m.GetNextQuery()
	if err != nil {
		t.Fatalf("GetNextQuery: %v", err)
	}
	if query == nil {
		t.Fatal("expected a first-round query")
	}
	if !strings.Contains(query.Document, "$q0_owner") || !strings.Contains(query.Document, "$q1_owner") {
		t.Fatalf("expected both owners aliased in the document:\n%s", query.Document)
	}
	if query.Variables["q0_owner"] != "acme" || query.Variables["q1_owner"] != "widgets" {
		t.Errorf("unexpected owner variables: %+v", query.Variables)
	}

	resp := emptyRepoPage(t, "q0", "q1")
	if err := m.HandleResponse(resp); err != nil {
		t.Fatalf("HandleResponse: %v", err)
	}

	query, err = m.GetNextQuery()
	if err != nil {
		t.Fatalf("second GetNextQuery: %v", err)
	}
	if query != nil {
		t.Fatalf("expected no further query once both owners are exhausted, got %+v", query)
	}

	if !sink.done {
		t.Error("expected OnDone")
	}
	var endRepos *Transition
	for i := range sink.transitions {
		if sink.transitions[i].Kind == EndFetchRepos {
			endRepos = &sink.transitions[i]
		}
	}
	if endRepos == nil {
		t.Fatal("expected an EndFetchRepos transition")
	}
	if endRepos.Repositories != 0 || endRepos.OpenIssues != 0 || endRepos.ReposWithOpenIssues != 0 {
		t.Errorf("expected all-zero EndFetchRepos counts, got %+v", endRepos)
	}

	out := m.GetOutput()
	var report *FetchReport
	for _, o := range out {
		if o.Kind == OutputReport {
			r := o.Report
			report = &r
		}
	}
	if report == nil || *report != (FetchReport{}) {
		t.Fatalf("expected a final all-zeros report, got %+v", report)
	}
}

// TestOneRepositoryThreeIssuesAllLabelsFit is scenario 3: a single
// repository's embedded first page already contains all three issues, each
// with all its labels, so the pipeline goes straight from FetchRepos to
// Done with no issues or labels phase at all.
func TestOneRepositoryThreeIssuesAllLabelsFit(t *testing.T) {
	sink := &sinkRecorder{}
	m := NewOrgsWithIssues([]string{"acme"}, Parameters{}, sink)

	if _, err := m.GetNextQuery(); err != nil {
		t.Fatalf("GetNextQuery: %v", err)
	}

	body := map[string]any{
		"q0": map[string]any{
			"repositories": map[string]any{
				"nodes": []any{
					map[string]any{
						"id":            "R_1",
						"nameWithOwner": "acme/one",
						"issues": map[string]any{
							"nodes": []any{
								issueNode("I_1", 1, "first", nil),
								issueNode("I_2", 2, "second", nil),
								issueNode("I_3", 3, "third", nil),
							},
							"pageInfo": map[string]any{"endCursor": nil, "hasNextPage": false},
						},
					},
				},
				"pageInfo": map[string]any{"endCursor": nil, "hasNextPage": false},
			},
		},
	}
	if err := m.HandleResponse(marshal(t, body)); err != nil {
		t.Fatalf("HandleResponse: %v", err)
	}

	query, err := m.GetNextQuery()
	if err != nil {
		t.Fatalf("second GetNextQuery: %v", err)
	}
	if query != nil {
		t.Fatalf("expected no issues/labels phase, got %+v", query)
	}
	if !sink.done {
		t.Error("expected OnDone")
	}
	for _, tr := range sink.transitions {
		if tr.Kind == StartFetchIssues || tr.Kind == StartFetchLabels {
			t.Errorf("unexpected phase started: %v", tr.Kind)
		}
	}

	var issues []string
	var report FetchReport
	for _, o := range m.GetOutput() {
		switch o.Kind {
		case OutputIssues:
			for _, iss := range o.Issues {
				issues = append(issues, string(iss.ID))
			}
		case OutputReport:
			report = o.Report
		}
	}
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues emitted directly, got %v", issues)
	}
	if report.Repositories != 1 || report.OpenIssues != 3 || report.ReposWithOpenIssues != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

// TestOverflowingLabelsOnOneIssueStartsLabelsPhase is scenario 4: one
// issue's embedded label page is incomplete, driving a FetchLabels phase
// whose document aliases the issue under q0 with $q0_issue_id / $q0_cursor,
// and whose final output carries every label collected across both pages.
func TestOverflowingLabelsOnOneIssueStartsLabelsPhase(t *testing.T) {
	sink := &sinkRecorder{}
	m := NewOrgsWithIssues([]string{"acme"}, Parameters{LabelPageSize: 5}, sink)

	if _, err := m.GetNextQuery(); err != nil {
		t.Fatalf("GetNextQuery: %v", err)
	}

	firstLabels := []any{"a", "b", "c", "d", "e"}
	cursor := "LBL1"
	body := map[string]any{
		"q0": map[string]any{
			"repositories": map[string]any{
				"nodes": []any{
					map[string]any{
						"id":            "R_1",
						"nameWithOwner": "acme/one",
						"issues": map[string]any{
							"nodes": []any{
								issueNode("I_1", 1, "overflow", &labelPage{names: firstLabels, cursor: &cursor, hasNext: true}),
							},
							"pageInfo": map[string]any{"endCursor": nil, "hasNextPage": false},
						},
					},
				},
				"pageInfo": map[string]any{"endCursor": nil, "hasNextPage": false},
			},
		},
	}
	if err := m.HandleResponse(marshal(t, body)); err != nil {
		t.Fatalf("HandleResponse: %v", err)
	}

	query, err := m.GetNextQuery()
	if err != nil {
		t.Fatalf("second GetNextQuery: %v", err)
	}
	if query == nil {
		t.Fatal("expected a labels-phase query")
	}
	if !strings.Contains(query.Document, "$q0_issue_id") || !strings.Contains(query.Document, "$q0_cursor") {
		t.Fatalf("expected q0_issue_id/q0_cursor declared:\n%s", query.Document)
	}
	if query.Variables["q0_issue_id"] != "I_1" {
		t.Errorf("q0_issue_id = %v, want I_1", query.Variables["q0_issue_id"])
	}
	if query.Variables["q0_cursor"] != "LBL1" {
		t.Errorf("q0_cursor = %v, want LBL1", query.Variables["q0_cursor"])
	}

	labelResp := map[string]any{
		"q0": map[string]any{
			"labels": map[string]any{
				"nodes":    []any{map[string]any{"name": "f"}, map[string]any{"name": "g"}, map[string]any{"name": "h"}},
				"pageInfo": map[string]any{"endCursor": nil, "hasNextPage": false},
			},
		},
	}
	if err := m.HandleResponse(marshal(t, labelResp)); err != nil {
		t.Fatalf("HandleResponse labels: %v", err)
	}

	if _, err := m.GetNextQuery(); err != nil {
		t.Fatalf("final GetNextQuery: %v", err)
	}
	if !sink.done {
		t.Error("expected OnDone")
	}

	var issues []string
	for _, o := range m.GetOutput() {
		if o.Kind == OutputIssues {
			for _, iss := range o.Issues {
				issues = append(issues, strings.Join(iss.Labels, ","))
			}
		}
	}
	if len(issues) != 1 {
		t.Fatalf("expected exactly one completed issue, got %v", issues)
	}
	want := "a,b,c,d,e,f,g,h"
	if issues[0] != want {
		t.Errorf("labels = %q, want %q", issues[0], want)
	}
}

type labelPage struct {
	names   []any
	cursor  *string
	hasNext bool
}

func issueNode(id string, number int, title string, labels *labelPage) map[string]any {
	lp := map[string]any{"nodes": []any{}, "pageInfo": map[string]any{"endCursor": nil, "hasNextPage": false}}
	if labels != nil {
		nodes := make([]any, 0, len(labels.names))
		for _, n := range labels.names {
			nodes = append(nodes, map[string]any{"name": n})
		}
		var ec any
		if labels.cursor != nil {
			ec = *labels.cursor
		}
		lp = map[string]any{"nodes": nodes, "pageInfo": map[string]any{"endCursor": ec, "hasNextPage": labels.hasNext}}
	}
	return map[string]any{
		"id":        id,
		"number":    number,
		"title":     title,
		"url":       "https://example.invalid/" + id,
		"createdAt": "2026-01-01T00:00:00Z",
		"updatedAt": "2026-01-01T00:00:00Z",
		"labels":    lp,
	}
}

func emptyRepoPage(t *testing.T, aliases ...string) json.RawMessage {
	t.Helper()
	body := map[string]any{}
	for _, alias := range aliases {
		body[alias] = map[string]any{
			"repositories": map[string]any{
				"nodes":    []any{},
				"pageInfo": map[string]any{"endCursor": nil, "hasNextPage": false},
			},
		}
	}
	return marshal(t, body)
}

func marshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	buf, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return buf
}
