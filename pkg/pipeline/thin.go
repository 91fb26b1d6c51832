package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/saturnines/issuebench/pkg/batch"
	"github.com/saturnines/issuebench/pkg/gql"
	"github.com/saturnines/issuebench/pkg/queries"
)

// OrgsThenIssues is the "thin repo then fat issues" pipeline machine: its
// first phase fetches repository descriptors only (with open-issue
// counts); a repository is eligible for the issues phase iff its
// open-issue count is positive. All issue and label fetching then happens
// in the FetchIssues/FetchLabels phases, mirroring OrgsWithIssues from
// that point on.
type OrgsThenIssues struct {
	params Parameters
	sink   EventSink
	state  thinState
	output []Output
	report FetchReport
}

// NewOrgsThenIssues constructs a thin-repo pipeline machine seeded with
// the given owners.
func NewOrgsThenIssues(owners []string, params Parameters, sink EventSink) *OrgsThenIssues {
	params = params.withDefaults()
	if sink == nil {
		sink = NoopEventSink{}
	}
	inputs := make([]batch.KeyedPaginator[string, queries.Repository], 0, len(owners))
	for _, owner := range owners {
		inputs = append(inputs, batch.KeyedPaginator[string, queries.Repository]{
			Key:       owner,
			Paginator: queries.GetOwnerReposThin{Owner: owner, PageSize: params.PageSize},
		})
	}
	return &OrgsThenIssues{
		params: params,
		sink:   sink,
		state: &thinStart{
			submachine: batch.New(inputs, params.BatchSize),
		},
	}
}

type thinState interface {
	isThinState()
}

type thinStart struct {
	submachine *batch.BatchPaginator[string, queries.Repository]
}

type thinFetchRepos struct {
	submachine          *batch.BatchPaginator[string, queries.Repository]
	issueQueries        []batch.KeyedPaginator[gql.ID, queries.IssueWithLabels]
	start               time.Time
}

type thinFetchIssues struct {
	submachine          *batch.BatchPaginator[gql.ID, queries.IssueWithLabels]
	labelQueries        []batch.KeyedPaginator[gql.ID, string]
	issuesNeedingLabels map[gql.ID]*queries.Issue
	start               time.Time
}

type thinFetchLabels struct {
	submachine          *batch.BatchPaginator[gql.ID, string]
	issuesNeedingLabels map[gql.ID]*queries.Issue
	start               time.Time
}

type thinDone struct{}

func (*thinStart) isThinState()       {}
func (*thinFetchRepos) isThinState()  {}
func (*thinFetchIssues) isThinState() {}
func (*thinFetchLabels) isThinState() {}
func (*thinDone) isThinState()        {}

func (m *OrgsThenIssues) done() {
	m.output = append(m.output, Output{Kind: OutputReport, Report: m.report})
	m.sink.OnDone()
	m.state = &thinDone{}
}

// GetNextQuery implements machine.QueryMachine[Output].
func (m *OrgsThenIssues) GetNextQuery() (*gql.QueryPayload, error) {
	switch st := m.state.(type) {
	case *thinStart:
		query, err := st.submachine.GetNextQuery()
		if err != nil {
			return nil, err
		}
		if query != nil {
			m.state = &thinFetchRepos{submachine: st.submachine, start: time.Now()}
			t := Transition{Kind: StartFetchRepos}
			m.output = append(m.output, Output{Kind: OutputTransition, Transition: t})
			m.sink.OnEvent(t)
		} else {
			m.done()
		}
		return query, nil

	case *thinFetchRepos:
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
			m.state = &thinFetchIssues{
				submachine:          issueSub,
				issuesNeedingLabels: make(map[gql.ID]*queries.Issue),
				start:               time.Now(),
			}
			return query, nil
		}
		m.done()
		return nil, nil

	case *thinFetchIssues:
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

		labelSub := batch.New(st.labelQueries, m.params.BatchSize)
		query, err = labelSub.GetNextQuery()
		if err != nil {
			return nil, err
		}
		if query != nil {
			t = Transition{Kind: StartFetchLabels, IssuesWithExtraLabels: m.report.IssuesWithExtraLabels}
			m.output = append(m.output, Output{Kind: OutputTransition, Transition: t})
			m.sink.OnEvent(t)
			m.state = &thinFetchLabels{
				submachine:          labelSub,
				issuesNeedingLabels: st.issuesNeedingLabels,
				start:               time.Now(),
			}
			return query, nil
		}
		m.done()
		return nil, nil

	case *thinFetchLabels:
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

	case *thinDone:
		return nil, nil

	default:
		panic(fmt.Sprintf("pipeline: unreachable state %T", st))
	}
}

// HandleResponse implements machine.QueryMachine[Output].
func (m *OrgsThenIssues) HandleResponse(data json.RawMessage) error {
	switch st := m.state.(type) {
	case *thinStart:
		panic("pipeline: HandleResponse called before GetNextQuery")

	case *thinFetchRepos:
		if err := st.submachine.HandleResponse(data); err != nil {
			return err
		}
		for _, pr := range st.submachine.GetOutput() {
			for _, repo := range pr.Items {
				m.report.Repositories++
				if repo.OpenIssues > 0 {
					m.report.ReposWithOpenIssues++
					m.report.ReposWithExtraIssues++
					st.issueQueries = append(st.issueQueries, batch.KeyedPaginator[gql.ID, queries.IssueWithLabels]{
						Key: repo.ID,
						Paginator: queries.GetIssues{
							RepoID:        repo.ID,
							PageSize:      m.params.PageSize,
							LabelPageSize: m.params.LabelPageSize,
						},
					})
				}
			}
		}
		return nil

	case *thinFetchIssues:
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

	case *thinFetchLabels:
		if err := st.submachine.HandleResponse(data); err != nil {
			return err
		}
		for _, pr := range st.submachine.GetOutput() {
			m.report.ExtraLabels += len(pr.Items)
			issue, ok := st.issuesNeedingLabels[pr.Key]
			if !ok {
				continue
			}
			issue.Labels = append(issue.Labels, pr.Items...)
		}
		return nil

	case *thinDone:
		return nil

	default:
		panic(fmt.Sprintf("pipeline: unreachable state %T", st))
	}
}

// GetOutput implements machine.QueryMachine[Output].
func (m *OrgsThenIssues) GetOutput() []Output {
	if len(m.output) == 0 {
		return nil
	}
	out := m.output
	m.output = nil
	return out
}
