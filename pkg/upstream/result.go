package upstream

import (
	"fmt"
)

// Kind classifies a failed upstream call.
type Kind string

const (
	// KindTimeout means the request did not complete within the timeout.
	KindTimeout Kind = "timeout"

	// KindConnection means the transport could not reach the upstream
	// (refused connection, DNS failure, reset).
	KindConnection Kind = "connection_error"

	// KindHTTP means the upstream answered with a non-2xx status.
	KindHTTP Kind = "http_error"

	// KindUnknown covers everything else, including 2xx bodies that are not JSON.
	KindUnknown Kind = "unknown"
)

// Failure describes why an upstream call produced no usable payload.
type Failure struct {
	Kind       Kind
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("upstream %s (status %d): %s", f.Kind, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("upstream %s: %s", f.Kind, f.Message)
}

// Label is the short, client-facing name of the failure.
func (f *Failure) Label() string {
	switch f.Kind {
	case KindTimeout:
		return "Timeout"
	case KindConnection:
		return "Connection Error"
	case KindHTTP:
		return fmt.Sprintf("HTTP Error: %d", f.StatusCode)
	default:
		return "Unknown Error"
	}
}

// Document renders the failure as the JSON body sent to clients.
func (f *Failure) Document() map[string]any {
	return map[string]any{
		"error":   f.Label(),
		"message": f.Message,
	}
}

// Result is the outcome of one upstream call: exactly one of Payload
// (decoded JSON) or Failure is meaningful.
type Result struct {
	Payload any
	Failure *Failure
}

// Succeeded wraps a decoded payload.
func Succeeded(payload any) Result {
	return Result{Payload: payload}
}

// Failed builds a failure result.
func Failed(kind Kind, statusCode int, message string) Result {
	return Result{Failure: &Failure{Kind: kind, StatusCode: statusCode, Message: message}}
}

// OK reports whether the call succeeded at the transport level.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Document returns what should be sent to the client for this result.
func (r Result) Document() any {
	if r.Failure != nil {
		return r.Failure.Document()
	}
	return r.Payload
}

// Outcome is a low-cardinality label for metrics and logs.
func (r Result) Outcome() string {
	if r.Failure != nil {
		return string(r.Failure.Kind)
	}
	return "success"
}
