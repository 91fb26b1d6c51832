// Package machine defines the cooperative QueryMachine interface that
// both BatchPaginator and the higher-level pipeline machines implement:
// a single-consumer state machine advanced by GetNextQuery/HandleResponse
// and drained by GetOutput.
package machine

import (
	"encoding/json"

	"github.com/saturnines/issuebench/pkg/gql"
)

// QueryMachine is a cooperative, single-consumer state machine. At most
// one request may be outstanding at a time: GetNextQuery must not be
// called again until HandleResponse has processed the previous payload's
// response.
type QueryMachine[Out any] interface {
	// GetNextQuery returns the next request payload, or nil when no
	// further requests are needed (terminal).
	GetNextQuery() (*gql.QueryPayload, error)

	// HandleResponse supplies the "data" field of the server's response
	// to the most recent outstanding request. It is a no-op once the
	// machine has reached its terminal state.
	HandleResponse(data json.RawMessage) error

	// GetOutput drains and returns outputs accumulated since the
	// previous call.
	GetOutput() []Out
}
