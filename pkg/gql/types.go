// Package gql defines the data model shared by the batching paginator
// engine: opaque cursors, pages of items, typed GraphQL variables, and the
// Selection/Paginator abstractions selections are built from.
package gql

import "encoding/json"

// Cursor is an opaque pagination token returned by the server. It is never
// parsed locally, only compared for presence and round-tripped back to the
// server in a later request.
type Cursor string

// ID is an opaque node identifier, as returned by the server's global
// object identification scheme.
type ID string

// Page is a single page of a paginated connection. If HasNextPage is true,
// EndCursor must be non-nil. An empty page may have a nil EndCursor even
// when HasNextPage is false — callers must not treat a nil EndCursor on an
// empty page as "rewind the cursor" (see Page-cursor rule, batch package).
type Page[T any] struct {
	Items       []T
	EndCursor   *Cursor
	HasNextPage bool
}

// Variable is a single GraphQL variable: its declared type (e.g. "ID!",
// "String") and its JSON-encodable value.
type Variable struct {
	GQLType string
	Value   any
}

// NamedVariable pairs a variable with its current (possibly prefixed)
// name. Selections return a slice rather than a map so that variable
// order is deterministic across calls, which document assembly and tests
// both depend on.
type NamedVariable struct {
	Name     string
	Variable Variable
}

// QueryPayload is the caller-facing request: an assembled GraphQL document
// and its flattened variable map, ready to hand to a transport.
type QueryPayload struct {
	Document  string
	Variables map[string]any
}

// Selection is a GraphQL fragment value: a body, a set of free variables
// under the selection's current prefix, and a response parser. Selections
// are immutable values — WithVariablePrefix returns a modified copy, it
// never mutates the receiver, so that a BatchPaginator can safely reuse a
// Paginator's Selection across many prefixed instantiations.
type Selection[Out any] interface {
	// WithVariablePrefix returns a new Selection whose free variable names
	// are namespaced under prefix. Composable: applying "q" to a
	// selection already prefixed with "p" yields names under "q_p".
	WithVariablePrefix(prefix string) Selection[Out]

	// WriteGraphQL emits the selection set body: no surrounding
	// `query { ... }` wrapper and no outer alias.
	WriteGraphQL() (string, error)

	// Variables enumerates this selection's current (name, Variable)
	// pairs in a deterministic order.
	Variables() []NamedVariable

	// ParseResponse parses the JSON sub-tree addressed by this
	// selection's alias into Out.
	ParseResponse(data json.RawMessage) (Out, error)
}

// Paginator is an immutable factory of Selections over successive pages of
// Item. It must be re-entrant: calling ForCursor repeatedly with equal
// cursors produces equivalent Selections.
type Paginator[Item any] interface {
	// ForCursor returns the Selection for the page following cursor. A
	// nil cursor requests the first page.
	ForCursor(cursor *Cursor) Selection[Page[Item]]
}
