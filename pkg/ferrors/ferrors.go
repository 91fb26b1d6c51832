// Package ferrors defines the error taxonomy shared by the pagination
// engine: protocol errors returned by the server, parse errors from
// malformed responses, transport failures, and usage errors from a
// misbehaving driver.
package ferrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Standard error categories. Wrap a concrete error with WrapError to tag
// it as one of these so callers can discriminate with errors.Is.
var (
	ErrProtocol  = errors.New("protocol error")
	ErrParse     = errors.New("parse error")
	ErrTransport = errors.New("transport error")
	ErrUsage     = errors.New("usage error")
)

// WrapError tags err with kind and attaches a message, preserving the
// chain so errors.Is(result, kind) and errors.Is(result, err) both hold.
func WrapError(err error, kind error, message string) error {
	return fmt.Errorf("%w: %s: %w", kind, message, err)
}

// Is reports whether err is or wraps target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target's type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GraphQLError is a single entry in a GraphQL response's "errors" array.
type GraphQLError struct {
	Type    string        `json:"type,omitempty"`
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

type graphQLEnvelope struct {
	Errors []GraphQLError `json:"errors,omitempty"`
}

// CheckGraphQLErrors inspects a raw GraphQL response body for a non-empty
// "errors" array and, if present, returns a protocol error summarizing all
// entries. A body that fails to parse as the envelope is treated as having
// no errors, since this helper is only ever called on bodies already known
// to be JSON.
func CheckGraphQLErrors(body []byte) error {
	var envelope graphQLEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if len(envelope.Errors) == 0 {
		return nil
	}

	var lines []string
	for _, e := range envelope.Errors {
		msg := e.Message
		if e.Type != "" {
			msg = fmt.Sprintf("[%s] %s", e.Type, msg)
		}
		if len(e.Path) > 0 {
			msg = fmt.Sprintf("%s (path: %v)", msg, e.Path)
		}
		lines = append(lines, msg)
	}

	return WrapError(
		fmt.Errorf("query errored:\n%s", strings.Join(lines, "\n---\n")),
		ErrProtocol,
		"GraphQL response contained errors",
	)
}
