package documentstore

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrorKind classifies how a backend call failed.
type ErrorKind string

const (
	// KindTimeout means the per-operation deadline elapsed.
	KindTimeout ErrorKind = "timeout"
	// KindTransport covers connection failures before a status was received.
	KindTransport ErrorKind = "transport"
	// KindStatus is a response outside [200,300).
	KindStatus ErrorKind = "status"
	// KindDecode is a response body that was not the expected JSON.
	KindDecode ErrorKind = "decode"
	// KindInternal is a request that could not be built.
	KindInternal ErrorKind = "internal"
)

// Error is the single failure type returned by Client. Status is 0 when no
// response was received.
type Error struct {
	Op      string
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("documentstore %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("documentstore %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsBackendError reports whether err came from the document store.
func IsBackendError(err error) bool {
	var be *Error
	return errors.As(err, &be)
}

// AsError unwraps err into a backend error.
func AsError(err error) (*Error, bool) {
	var be *Error
	ok := errors.As(err, &be)
	return be, ok
}

func newError(op string, kind ErrorKind, status int, message string, err error) *Error {
	return &Error{Op: op, Kind: kind, Status: status, Message: message, Err: redactURL(err)}
}

// redactURL drops the query string from a wrapped *url.Error. Query filters
// carry customer phone numbers and the error text ends up in logs and spans.
func redactURL(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	redacted := ""
	if u, pErr := url.Parse(ue.URL); pErr == nil {
		u.RawQuery = ""
		u.Fragment = ""
		u.User = nil
		redacted = u.String()
	}
	return &url.Error{Op: ue.Op, URL: redacted, Err: ue.Err}
}
