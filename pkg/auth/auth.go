// Package auth applies credentials to outgoing GraphQL requests. The
// benchmark driver only ever constructs a BearerAuth from the run's
// configured token, which is the hosted service's only supported
// credential kind, but the Handler interface stays a one-method
// interface rather than a concrete type so the transport doesn't need
// to know which credential kind it's holding.
package auth

import "net/http"

// Handler defines the interface for auth handlers
type Handler interface {
	ApplyAuth(req *http.Request) error
}
