// Package pipeline composes batch.BatchPaginator instances into the
// multi-phase repositories → issues → labels workflow: Start, FetchRepos,
// FetchIssues, FetchLabels, Done. Two variants are provided, differing
// only in their first-phase Paginator and issue-phase eligibility
// predicate: OrgsWithIssues ("fat repo then more issues") and
// OrgsThenIssues ("thin repo then fat issues").
package pipeline

import (
	"time"

	"github.com/saturnines/issuebench/pkg/queries"
)

// Parameters configures page sizes and batching for a pipeline run.
// Zero values fall back to the engine's documented defaults
// (batch=50, page=100, label_page=10) at construction time.
type Parameters struct {
	BatchSize     uint
	PageSize      uint
	LabelPageSize uint
}

// withDefaults returns a copy of p with zero fields replaced by the
// engine's documented defaults.
func (p Parameters) withDefaults() Parameters {
	if p.BatchSize == 0 {
		p.BatchSize = 50
	}
	if p.PageSize == 0 {
		p.PageSize = 100
	}
	if p.LabelPageSize == 0 {
		p.LabelPageSize = 10
	}
	return p
}

// FetchReport is the terminal summary emitted once a pipeline reaches
// Done.
type FetchReport struct {
	Repositories         int
	OpenIssues           int
	ReposWithOpenIssues  int
	ReposWithExtraIssues int
	IssuesWithExtraLabels int
	ExtraIssues          int
	ExtraLabels          int
}

// Transition marks a phase boundary. Only the fields documented for its
// Kind are populated; a StartFetchRepos transition carries no counts.
type Transition struct {
	Kind TransitionKind

	// Populated on EndFetchRepos.
	Repositories        int
	ReposWithOpenIssues int
	OpenIssues          int

	// Populated on StartFetchIssues / EndFetchIssues.
	ReposWithExtraIssues int
	ExtraIssues          int

	// Populated on StartFetchLabels / EndFetchLabels.
	IssuesWithExtraLabels int
	ExtraLabels           int

	// Populated on any End* transition.
	Elapsed time.Duration
}

// TransitionKind identifies which phase boundary a Transition describes.
type TransitionKind int

const (
	StartFetchRepos TransitionKind = iota
	EndFetchRepos
	StartFetchIssues
	EndFetchIssues
	StartFetchLabels
	EndFetchLabels
)

func (k TransitionKind) String() string {
	switch k {
	case StartFetchRepos:
		return "StartFetchRepos"
	case EndFetchRepos:
		return "EndFetchRepos"
	case StartFetchIssues:
		return "StartFetchIssues"
	case EndFetchIssues:
		return "EndFetchIssues"
	case StartFetchLabels:
		return "StartFetchLabels"
	case EndFetchLabels:
		return "EndFetchLabels"
	default:
		return "Unknown"
	}
}

// Output is the tagged union of values a pipeline machine's GetOutput
// drains. Exactly one field is meaningful per Kind.
type Output struct {
	Kind       OutputKind
	Transition Transition
	Issues     []queries.Issue
	Report     FetchReport
}

// OutputKind discriminates Output's payload.
type OutputKind int

const (
	OutputTransition OutputKind = iota
	OutputIssues
	OutputReport
)

// EventSink receives structural phase events independently of the output
// stream, for progress reporting. Implementations must tolerate being
// called synchronously from GetNextQuery/HandleResponse.
type EventSink interface {
	OnEvent(Transition)
	OnDone()
}

// NoopEventSink discards every event. It is the default when no sink is
// supplied.
type NoopEventSink struct{}

func (NoopEventSink) OnEvent(Transition) {}
func (NoopEventSink) OnDone()            {}
