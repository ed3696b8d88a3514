// Package transport performs the HTTP round trips of compiled methods.
package transport

import (
	"context"
	"net/http"
)

// Request is a fully built request: the query string is already part of URL.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// Op names the compiled method for errors and logs.
	Op string
}

// Response is the raw result of a round trip.
type Response struct {
	Status int
	Body   []byte
}

// Transport performs a request and returns its raw response.
type Transport interface {
	Perform(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req Request) (Response, error)

func (f Func) Perform(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// OK reports whether status is a 2xx code.
func OK(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
