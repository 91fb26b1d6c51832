package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/saturnines/issuebench/pkg/batch"
	"github.com/saturnines/issuebench/pkg/gql"
	"github.com/saturnines/issuebench/pkg/queries"
)

// OrgsWithIssues is the "fat repo then more issues" pipeline machine: its
// first phase fetches repository descriptors with an embedded first page
// of issues (and each issue's first page of labels); a repository is
// eligible for the issues phase iff its embedded issues page has more
// pages. Grounded on the orgs-with-issues machine in the corpus this
// benchmark's design was distilled from.
type OrgsWithIssues struct {
	params Parameters
	sink   EventSink
	state  fatState
	output []Output
	report FetchReport
}

// NewOrgsWithIssues constructs a fat-repo pipeline machine seeded with the
// given owners. An empty owner list transitions straight to Done on the
// first GetNextQuery call.
func NewOrgsWithIssues(owners []string, params Parameters, sink EventSink) *OrgsWithIssues {
	params = params.withDefaults()
	if sink == nil {
		sink = NoopEventSink{}
	}
	inputs := make([]batch.KeyedPaginator[string, queries.RepoWithIssues], 0, len(owners))
	for _, owner := range owners {
		inputs = append(inputs, batch.KeyedPaginator[string, queries.RepoWithIssues]{
			Key: owner,
			Paginator: queries.GetOwnerRepos{
				Owner:         owner,
				PageSize:      params.PageSize,
				LabelPageSize: params.LabelPageSize,
			},
		})
	}
	return &OrgsWithIssues{
		params: params,
		sink:   sink,
		state: &fatStart{
			submachine: batch.New(inputs, params.BatchSize),
		},
	}
}

// fatState is the tagged-union phase state. Each phase owns its own typed
// BatchPaginator; the phase boundary is the type boundary, so no attempt
// is made to unify Item types across phases.
type fatState interface {
	isFatState()
}

type fatStart struct {
	submachine *batch.BatchPaginator[string, queries.RepoWithIssues]
}

type fatFetchRepos struct {
	submachine          *batch.BatchPaginator[string, queries.RepoWithIssues]
	issueQueries        []batch.KeyedPaginator[gql.ID, queries.IssueWithLabels]
	labelQueries        []batch.KeyedPaginator[gql.ID, string]
	issuesNeedingLabels map[gql.ID]*queries.Issue
	start               time.Time
}

type fatFetchIssues struct {
	submachine          *batch.BatchPaginator[gql.ID, queries.IssueWithLabels]
	labelQueries        []batch.KeyedPaginator[gql.ID, string]
	issuesNeedingLabels map[gql.ID]*queries.Issue
	start               time.Time
}

type fatFetchLabels struct {
	submachine          *batch.BatchPaginator[gql.ID, string]
	issuesNeedingLabels map[gql.ID]*queries.Issue
	start               time.Time
}

type fatDone struct{}

func (*fatStart) isFatState()       {}
func (*fatFetchRepos) isFatState()  {}
func (*fatFetchIssues) isFatState() {}
func (*fatFetchLabels) isFatState() {}
func (*fatDone) isFatState()        {}

func (m *OrgsWithIssues) done() {
	m.output = append(m.output, Output{Kind: OutputReport, Report: m.report})
	m.sink.OnDone()
	m.state = &fatDone{}
}

// GetNextQuery implements machine.QueryMachine[Output].
func (m *OrgsWithIssues) GetNextQuery() (*gql.QueryPayload, error) {
	switch st := m.state.(type) {
	case *fatStart:
		query, err := st.submachine.GetNextQuery()
		if err != nil {
			return nil, err
		}
		if query != nil {
			m.state = &fatFetchRepos{
				submachine:          st.submachine,
				issuesNeedingLabels: make(map[gql.ID]*queries.Issue),
				start:               time.Now(),
			}
			t := Transition{Kind: StartFetchRepos}
			m.output = append(m.output, Output{Kind: OutputTransition, Transition: t})
			m.sink.OnEvent(t)
		} else {
			m.done()
		}
		return query, nil

	case *fatFetchRepos:
		query, err := st.submachine.GetNextQuery()
		if err != nil {
			return nil, err
		}
		if query != nil {
			return query, nil
		}
		t := Transition{
			Kind:                EndFetchRepos,
			Repositories:        m.report.Repositories,
			ReposWithOpenIssues: m.report.ReposWithOpenIssues,
			OpenIssues:          m.report.OpenIssues,
			Elapsed:             time.Since(st.start),
		}
		m.output = append(m.output, Output{Kind: OutputTransition, Transition: t})
		m.sink.OnEvent(t)

		issueSub := batch.New(st.issueQueries, m.params.BatchSize)
		query, err = issueSub.GetNextQuery()
		if err != nil {
			return nil, err
		}
		if query != nil {
			t = Transition{Kind: StartFetchIssues, ReposWithExtraIssues: m.report.ReposWithExtraIssues}
			m.output = append(m.output, Output{Kind: OutputTransition, Transition: t})
			m.sink.OnEvent(t)
			m.state = &fatFetchIssues{
				submachine:          issueSub,
				labelQueries:        st.labelQueries,
				issuesNeedingLabels: st.issuesNeedingLabels,
				start:               time.Now(),
			}
			return query, nil
		}
		return m.startLabelsOrDone(st.labelQueries, st.issuesNeedingLabels)

	case *fatFetchIssues:
		query, err := st.submachine.GetNextQuery()
		if err != nil {
			return nil, err
		}
		if query != nil {
			return query, nil
		}
		t := Transition{Kind: EndFetchIssues, ExtraIssues: m.report.ExtraIssues, Elapsed: time.Since(st.start)}
		m.output = append(m.output, Output{Kind: OutputTransition, Transition: t})
		m.sink.OnEvent(t)
		return m.startLabelsOrDone(st.labelQueries, st.issuesNeedingLabels)

	case *fatFetchLabels:
		query, err := st.submachine.GetNextQuery()
		if err != nil {
			return nil, err
		}
		if query != nil {
			return query, nil
		}
		t := Transition{Kind: EndFetchLabels, ExtraLabels: m.report.ExtraLabels, Elapsed: time.Since(st.start)}
		m.output = append(m.output, Output{Kind: OutputTransition, Transition: t})
		m.sink.OnEvent(t)
		issues := drainIssues(st.issuesNeedingLabels)
		if len(issues) > 0 {
			m.output = append(m.output, Output{Kind: OutputIssues, Issues: issues})
		}
		m.done()
		return nil, nil

	case *fatDone:
		return nil, nil

	default:
		panic(fmt.Sprintf("pipeline: unreachable state %T", st))
	}
}

// startLabelsOrDone builds the label-fetch BatchPaginator if there is any
// label work, transitioning to FetchLabels, or finishes the run.
func (m *OrgsWithIssues) startLabelsOrDone(
	labelQueries []batch.KeyedPaginator[gql.ID, string],
	issuesNeedingLabels map[gql.ID]*queries.Issue,
) (*gql.QueryPayload, error) {
	labelSub := batch.New(labelQueries, m.params.BatchSize)
	query, err := labelSub.GetNextQuery()
	if err != nil {
		return nil, err
	}
	if query != nil {
		t := Transition{Kind: StartFetchLabels, IssuesWithExtraLabels: m.report.IssuesWithExtraLabels}
		m.output = append(m.output, Output{Kind: OutputTransition, Transition: t})
		m.sink.OnEvent(t)
		m.state = &fatFetchLabels{
			submachine:          labelSub,
			issuesNeedingLabels: issuesNeedingLabels,
			start:               time.Now(),
		}
		return query, nil
	}
	m.done()
	return nil, nil
}

// HandleResponse implements machine.QueryMachine[Output].
func (m *OrgsWithIssues) HandleResponse(data json.RawMessage) error {
	switch st := m.state.(type) {
	case *fatStart:
		panic("pipeline: HandleResponse called before GetNextQuery")

	case *fatFetchRepos:
		if err := st.submachine.HandleResponse(data); err != nil {
			return err
		}
		var issuesOut []queries.Issue
		for _, pr := range st.submachine.GetOutput() {
			for _, repo := range pr.Items {
				m.report.Repositories++
				if len(repo.Issues) > 0 {
					m.report.ReposWithOpenIssues++
					for _, iwl := range repo.Issues {
						m.report.OpenIssues++
						if q := iwl.MoreLabelsQuery(m.params.LabelPageSize); q != nil {
							m.report.IssuesWithExtraLabels++
							issue := iwl.Issue
							st.labelQueries = append(st.labelQueries, batch.KeyedPaginator[gql.ID, string]{Key: issue.ID, Paginator: *q})
							st.issuesNeedingLabels[issue.ID] = &issue
						} else {
							issuesOut = append(issuesOut, iwl.Issue)
						}
					}
				}
				if repo.HasMoreIssues {
					m.report.ReposWithExtraIssues++
					st.issueQueries = append(st.issueQueries, batch.KeyedPaginator[gql.ID, queries.IssueWithLabels]{
						Key: repo.ID,
						Paginator: queries.GetIssues{
							RepoID:        repo.ID,
							Cursor:        repo.IssueCursor,
							PageSize:      m.params.PageSize,
							LabelPageSize: m.params.LabelPageSize,
						},
					})
				}
			}
		}
		if len(issuesOut) > 0 {
			m.output = append(m.output, Output{Kind: OutputIssues, Issues: issuesOut})
		}
		return nil

	case *fatFetchIssues:
		if err := st.submachine.HandleResponse(data); err != nil {
			return err
		}
		var issuesOut []queries.Issue
		for _, pr := range st.submachine.GetOutput() {
			for _, iwl := range pr.Items {
				m.report.OpenIssues++
				m.report.ExtraIssues++
				if q := iwl.MoreLabelsQuery(m.params.LabelPageSize); q != nil {
					m.report.IssuesWithExtraLabels++
					issue := iwl.Issue
					st.labelQueries = append(st.labelQueries, batch.KeyedPaginator[gql.ID, string]{Key: issue.ID, Paginator: *q})
					st.issuesNeedingLabels[issue.ID] = &issue
				} else {
					issuesOut = append(issuesOut, iwl.Issue)
				}
			}
		}
		if len(issuesOut) > 0 {
			m.output = append(m.output, Output{Kind: OutputIssues, Issues: issuesOut})
		}
		return nil

	case *fatFetchLabels:
		if err := st.submachine.HandleResponse(data); err != nil {
			return err
		}
		for _, pr := range st.submachine.GetOutput() {
			m.report.ExtraLabels += len(pr.Items)
			issue, ok := st.issuesNeedingLabels[pr.Key]
			if !ok {
				continue // soft warning: label results for an issue we never tracked
			}
			issue.Labels = append(issue.Labels, pr.Items...)
		}
		return nil

	case *fatDone:
		return nil

	default:
		panic(fmt.Sprintf("pipeline: unreachable state %T", st))
	}
}

// GetOutput implements machine.QueryMachine[Output].
func (m *OrgsWithIssues) GetOutput() []Output {
	if len(m.output) == 0 {
		return nil
	}
	out := m.output
	m.output = nil
	return out
}

func drainIssues(m map[gql.ID]*queries.Issue) []queries.Issue {
	if len(m) == 0 {
		return nil
	}
	issues := make([]queries.Issue, 0, len(m))
	for _, issue := range m {
		issues = append(issues, *issue)
	}
	return issues
}
