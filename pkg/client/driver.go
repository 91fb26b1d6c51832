package client

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/saturnines/issuebench/pkg/batch"
	"github.com/saturnines/issuebench/pkg/ferrors"
	"github.com/saturnines/issuebench/pkg/machine"
)

// Driver drives any machine.QueryMachine to completion against a
// Transport: get the next query, execute it, feed the response back, and
// repeat until the machine reports no further work. It does not interpret
// outputs — it only ensures liveness.
type Driver struct {
	Transport Transport
	Logger    *log.Logger
}

// NewDriver builds a Driver. A nil logger discards all logging.
func NewDriver(transport Transport, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Driver{Transport: transport, Logger: logger}
}

// Run drives m to completion, returning every output it produced across
// all round-trips in the order the machine emitted them. It is a free
// function rather than a method because Go methods cannot carry their own
// type parameters independent of their receiver's.
func Run[Out any](ctx context.Context, d *Driver, m machine.QueryMachine[Out]) ([]Out, error) {
	var all []Out
	roundTrip := 0
	for {
		payload, err := m.GetNextQuery()
		if err != nil {
			return all, err
		}
		if payload == nil {
			all = append(all, m.GetOutput()...)
			return all, nil
		}
		roundTrip++
		d.Logger.Debug("round-trip", "n", roundTrip, "bytes", len(payload.Document))

		resp, err := d.Transport.Execute(ctx, *payload)
		if err != nil {
			return all, err
		}
		if len(resp.Errors) > 0 {
			return all, ferrors.WrapError(
				fmt.Errorf("%d GraphQL errors returned", len(resp.Errors)),
				ferrors.ErrProtocol,
				"GraphQL response",
			)
		}
		if err := m.HandleResponse(resp.Data); err != nil {
			return all, err
		}
		all = append(all, m.GetOutput()...)
	}
}

// BatchPaginate is a convenience variant that drives a bare
// *batch.BatchPaginator directly, without wrapping it in a pipeline
// machine, per the client driver's synchronous batch_paginate contract.
func BatchPaginate[K comparable, Item any](
	ctx context.Context,
	transport Transport,
	bp *batch.BatchPaginator[K, Item],
) ([]batch.PaginationResults[K, Item], error) {
	var all []batch.PaginationResults[K, Item]
	for {
		payload, err := bp.GetNextQuery()
		if err != nil {
			return all, err
		}
		if payload == nil {
			all = append(all, bp.GetOutput()...)
			return all, nil
		}
		resp, err := transport.Execute(ctx, *payload)
		if err != nil {
			return all, err
		}
		if len(resp.Errors) > 0 {
			return all, ferrors.WrapError(
				fmt.Errorf("%d GraphQL errors returned", len(resp.Errors)),
				ferrors.ErrProtocol,
				"GraphQL response",
			)
		}
		if err := bp.HandleResponse(resp.Data); err != nil {
			return all, err
		}
		all = append(all, bp.GetOutput()...)
	}
}
