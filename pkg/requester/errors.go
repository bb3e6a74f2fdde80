package requester

import "fmt"

// Kind classifies a terminal request failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindTransport
	// KindMalformedResponse is never emitted by Execute itself: a 200
	// body that fails to decode leaves the signal unresolved instead.
	// Callers that time out on Wait may use it to label that condition.
	KindMalformedResponse
	KindRedirection
	KindClient
	KindServer
)

// String returns the stable name used in logs and alert payloads.
func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindTransport:
		return "transport"
	case KindMalformedResponse:
		return "malformed_response"
	case KindRedirection:
		return "redirection"
	case KindClient:
		return "client_error"
	case KindServer:
		return "server_error"
	default:
		return "unknown"
	}
}

// Error is the terminal failure carried by a Failed outcome.
type Error struct {
	Kind   Kind
	Status int // HTTP status when the failure came from a response, else 0
	cause  error
}

func newStatusError(status int) *Error {
	return &Error{Kind: KindForStatus(status), Status: status}
}

func newKindError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("request failed: %s (status %d)", e.Kind, e.Status)
	case e.cause != nil:
		return fmt.Sprintf("request failed: %s: %v", e.Kind, e.cause)
	default:
		return fmt.Sprintf("request failed: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// KindForStatus maps a non-200 HTTP status to a failure kind by range.
func KindForStatus(status int) Kind {
	switch {
	case status >= 300 && status <= 399:
		return KindRedirection
	case status >= 400 && status <= 499:
		return KindClient
	case status >= 500 && status <= 599:
		return KindServer
	default:
		return KindUnknown
	}
}
