// Package batch implements the batching paginator: it multiplexes many
// independent gql.Paginator instances into a single GraphQL document per
// round-trip, demultiplexes the response by alias, advances each
// paginator's cursor, and reschedules unfinished paginators for a later
// round-trip.
package batch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/saturnines/issuebench/pkg/ferrors"
	"github.com/saturnines/issuebench/pkg/gql"
)

// DefaultBatchSize is the maximum number of selections packed into one
// document per round-trip, absent an explicit override.
const DefaultBatchSize = 50

// PaginationResults is the final value produced for one input key once its
// paginator has been driven to exhaustion.
type PaginationResults[K comparable, Item any] struct {
	Key       K
	Items     []Item
	EndCursor *gql.Cursor
}

// pendingQuery is a paginator still waiting for its turn, along with the
// accumulated state carried between its rounds.
type pendingQuery[K comparable, Item any] struct {
	key       K
	paginator gql.Paginator[Item]
	cursor    *gql.Cursor
	items     []Item
}

// activeQuery is a pendingQuery that has been assigned an alias for the
// in-flight round-trip, together with the exact Selection issued so the
// response can be parsed against it.
type activeQuery[K comparable, Item any] struct {
	pending   pendingQuery[K, Item]
	selection gql.Selection[gql.Page[Item]]
}

// BatchPaginator drives a bounded-in-flight fan-out of Paginators through
// a single-threaded request/response loop. It is not safe for concurrent
// use by multiple goroutines — the whole engine is designed to be driven
// cooperatively by one caller.
type BatchPaginator[K comparable, Item any] struct {
	batchSize uint
	pending   []pendingQuery[K, Item]
	active    map[string]activeQuery[K, Item]
	output    []PaginationResults[K, Item]
	awaiting  bool
}

// New constructs a BatchPaginator over the given (key, paginator) pairs.
// batchSize of 0 falls back to DefaultBatchSize.
func New[K comparable, Item any](inputs []KeyedPaginator[K, Item], batchSize uint) *BatchPaginator[K, Item] {
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	pending := make([]pendingQuery[K, Item], 0, len(inputs))
	for _, in := range inputs {
		pending = append(pending, pendingQuery[K, Item]{key: in.Key, paginator: in.Paginator})
	}
	return &BatchPaginator[K, Item]{
		batchSize: batchSize,
		pending:   pending,
		active:    make(map[string]activeQuery[K, Item]),
	}
}

// KeyedPaginator pairs an input key with the Paginator that produces its
// pages.
type KeyedPaginator[K comparable, Item any] struct {
	Key       K
	Paginator gql.Paginator[Item]
}

// GetNextQuery assembles and returns the next document plus merged
// variables, or nil when there is nothing left to request. Calling it
// again before HandleResponse has processed the previous round-trip's
// response is a protocol violation and returns a usage error.
func (b *BatchPaginator[K, Item]) GetNextQuery() (*gql.QueryPayload, error) {
	if b.awaiting {
		return nil, ferrors.WrapError(
			fmt.Errorf("GetNextQuery called again before HandleResponse"),
			ferrors.ErrUsage,
			"batch paginator protocol",
		)
	}
	if len(b.pending) == 0 {
		return nil, nil
	}

	n := len(b.pending)
	if uint(n) > b.batchSize {
		n = int(b.batchSize)
	}
	batch := b.pending[:n]
	b.pending = b.pending[n:]

	var varDecls []string
	variables := make(map[string]any)
	var bodyParts []string

	for i, pq := range batch {
		alias := fmt.Sprintf("q%d", i)
		selection := pq.paginator.ForCursor(pq.cursor).WithVariablePrefix(alias)
		for _, nv := range selection.Variables() {
			varDecls = append(varDecls, fmt.Sprintf("$%s: %s", nv.Name, nv.Variable.GQLType))
			variables[nv.Name] = nv.Variable.Value
		}
		body, err := selection.WriteGraphQL()
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.ErrUsage, "write selection body")
		}
		bodyParts = append(bodyParts, fmt.Sprintf("%s: %s", alias, body))
		b.active[alias] = activeQuery[K, Item]{pending: pq, selection: selection}
	}

	document := fmt.Sprintf("query (%s) {\n%s}\n", strings.Join(varDecls, ", "), strings.Join(bodyParts, ""))
	b.awaiting = true
	return &gql.QueryPayload{Document: document, Variables: variables}, nil
}

// HandleResponse demultiplexes data by alias, feeding each sub-tree to its
// active Selection's parser, applying the page-cursor rule, and either
// rescheduling the paginator (more pages) or emitting PaginationResults
// (exhausted). Active aliases are processed in alias order (q0, q1, …), so
// rescheduled paginators keep their relative order in the pending queue.
// Unknown aliases in the response are silently skipped — a soft warning,
// not an error, per the engine's error taxonomy. Once the paginator is
// done, HandleResponse is a no-op.
func (b *BatchPaginator[K, Item]) HandleResponse(data json.RawMessage) error {
	if !b.awaiting {
		if b.Done() {
			return nil
		}
		return ferrors.WrapError(
			fmt.Errorf("HandleResponse called without a prior GetNextQuery"),
			ferrors.ErrUsage,
			"batch paginator protocol",
		)
	}
	b.awaiting = false

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ferrors.WrapError(err, ferrors.ErrParse, "decode batch response")
	}

	// Unknown aliases in raw are never looked up: soft warning, silently
	// skipped.
	n := len(b.active)
	for i := 0; i < n; i++ {
		alias := fmt.Sprintf("q%d", i)
		aq, ok := b.active[alias]
		if !ok {
			continue
		}
		value, ok := raw[alias]
		if !ok {
			continue // absent from the response: requeued below
		}
		delete(b.active, alias)

		page, err := aq.selection.ParseResponse(value)
		if err != nil {
			return ferrors.WrapError(err, ferrors.ErrParse, fmt.Sprintf("parse response for alias %q", alias))
		}

		pq := aq.pending
		pq.items = append(pq.items, page.Items...)
		// Page-cursor rule: a present end cursor advances the cursor; an
		// absent one (possible on an empty page) preserves whatever
		// cursor we already knew, rather than rewinding.
		if page.EndCursor != nil {
			pq.cursor = page.EndCursor
		}

		if page.HasNextPage {
			b.pending = append(b.pending, pq)
		} else {
			b.output = append(b.output, PaginationResults[K, Item]{
				Key:       pq.key,
				Items:     pq.items,
				EndCursor: pq.cursor,
			})
		}
	}

	// Any alias that was active but absent from the response stays
	// pending implicitly: it was removed from b.active only on a match,
	// so leftover active entries must be put back in the queue, in alias
	// order, to avoid losing them.
	for i := 0; i < n; i++ {
		alias := fmt.Sprintf("q%d", i)
		if aq, ok := b.active[alias]; ok {
			b.pending = append(b.pending, aq.pending)
			delete(b.active, alias)
		}
	}

	return nil
}

// GetOutput drains and returns all PaginationResults completed so far.
// Idempotent when there is nothing new: it returns nil.
func (b *BatchPaginator[K, Item]) GetOutput() []PaginationResults[K, Item] {
	if len(b.output) == 0 {
		return nil
	}
	out := b.output
	b.output = nil
	return out
}

// Done reports whether there is no pending or in-flight work left.
func (b *BatchPaginator[K, Item]) Done() bool {
	return len(b.pending) == 0 && len(b.active) == 0 && !b.awaiting
}
