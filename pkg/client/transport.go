// Package client wires the QueryMachine abstraction to an actual HTTP
// GraphQL endpoint: it serializes a single (document, variables) payload,
// invokes a Transport, and feeds the parsed "data" field back into a
// machine until the machine reaches its terminal state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/saturnines/issuebench/pkg/auth"
	"github.com/saturnines/issuebench/pkg/ferrors"
	"github.com/saturnines/issuebench/pkg/gql"
)

// Transport executes a single GraphQL request and returns its response.
// The core treats any non-empty Errors as fatal.
type Transport interface {
	Execute(ctx context.Context, payload gql.QueryPayload) (Response, error)
}

// Response is a decoded GraphQL response envelope.
type Response struct {
	Data   json.RawMessage      `json:"data"`
	Errors []ferrors.GraphQLError `json:"errors,omitempty"`
}

// HTTPTransport implements Transport over a plain *http.Client, POSTing
// the assembled document as a standard GraphQL-over-HTTP request. Auth,
// if set, is applied to every outgoing request before Headers are set,
// so a Headers entry can still override it.
type HTTPTransport struct {
	Endpoint string
	Client   *http.Client
	Headers  map[string]string
	Auth     auth.Handler
}

// NewHTTPTransport builds an HTTPTransport targeting endpoint. A nil
// httpClient falls back to http.DefaultClient. A nil authHandler sends
// requests unauthenticated.
func NewHTTPTransport(endpoint string, httpClient *http.Client, headers map[string]string, authHandler auth.Handler) *HTTPTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTransport{Endpoint: endpoint, Client: httpClient, Headers: headers, Auth: authHandler}
}

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Execute implements Transport.
func (t *HTTPTransport) Execute(ctx context.Context, payload gql.QueryPayload) (Response, error) {
	buf, err := json.Marshal(requestBody{Query: payload.Document, Variables: payload.Variables})
	if err != nil {
		return Response{}, ferrors.WrapError(err, ferrors.ErrUsage, "encode GraphQL request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return Response{}, ferrors.WrapError(err, ferrors.ErrTransport, "build GraphQL request")
	}
	req.Header.Set("Content-Type", "application/json")
	if t.Auth != nil {
		if err := t.Auth.ApplyAuth(req); err != nil {
			return Response{}, ferrors.WrapError(err, ferrors.ErrUsage, "apply auth")
		}
	}
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return Response{}, ferrors.WrapError(err, ferrors.ErrTransport, "perform GraphQL request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, ferrors.WrapError(
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			ferrors.ErrTransport,
			"GraphQL HTTP response",
		)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, ferrors.WrapError(err, ferrors.ErrParse, "decode GraphQL response")
	}
	return out, nil
}
