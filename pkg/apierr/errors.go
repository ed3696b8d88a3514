// Package apierr defines the error taxonomy shared by the compiler, the client
// runtime and the transport.
package apierr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindSchema marks a malformed schema. Fatal at compile time.
	KindSchema Kind = "schema_error"
	// KindArgument marks a constructor or call whose keyword set does not match
	// the declared set.
	KindArgument Kind = "argument_error"
	// KindTransport marks a connection failure or a rejected HTTP status.
	KindTransport Kind = "transport_error"
	// KindDecode marks a response body that is not valid JSON.
	KindDecode Kind = "decode_error"
)

// Error is the error type returned by every package of this module.
type Error struct {
	Kind    Kind
	Op      string // e.g. "Inventory.get_items"
	Message string
	// Status is the HTTP status for transport errors, zero otherwise.
	Status int
	// Body holds the response body of a rejected status.
	Body []byte
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(" [")
		b.WriteString(e.Op)
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Schemaf creates a schema error with a formatted message.
func Schemaf(op, format string, args ...any) *Error {
	return &Error{Kind: KindSchema, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Argumentf creates an argument error with a formatted message.
func Argumentf(op, format string, args ...any) *Error {
	return &Error{Kind: KindArgument, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Transport wraps a transport failure.
func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: "request failed", Err: err}
}

// Status creates a transport error for a rejected HTTP status.
func Status(op string, status int, body []byte) *Error {
	return &Error{
		Kind:    KindTransport,
		Op:      op,
		Message: fmt.Sprintf("unexpected status %d", status),
		Status:  status,
		Body:    body,
	}
}

// Decode wraps a response decoding failure.
func Decode(op string, err error) *Error {
	return &Error{Kind: KindDecode, Op: op, Message: "invalid JSON response", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsSchema(err error) bool    { return KindOf(err) == KindSchema }
func IsArgument(err error) bool  { return KindOf(err) == KindArgument }
func IsTransport(err error) bool { return KindOf(err) == KindTransport }
func IsDecode(err error) bool    { return KindOf(err) == KindDecode }

// Join returns a schema error that lists every problem found in one pass.
func Join(op string, errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return &Error{
		Kind:    KindSchema,
		Op:      op,
		Message: fmt.Sprintf("%d problems: %s", len(errs), strings.Join(msgs, "; ")),
		Err:     errors.Join(errs...),
	}
}
