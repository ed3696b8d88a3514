package client

import (
	"context"
	"errors"
	"maps"
	"net/url"
	"time"

	"github.com/blimu-dev/webapi/pkg/apierr"
	"github.com/blimu-dev/webapi/pkg/ir"
	"github.com/blimu-dev/webapi/pkg/metrics"
	"github.com/blimu-dev/webapi/pkg/transport"
)

// opener builds and sends the requests of one method of one instance. Its
// data and headers hold the literals and construction-time values and are
// never modified after construction.
type opener struct {
	method    *ir.Method
	data      map[string]string
	headers   map[string]string
	transport transport.Transport
	metrics   *metrics.Collector
}

func newOpener(m *ir.Method, ctorArgs Args, o options) (*opener, error) {
	op := &opener{
		method:    m,
		data:      maps.Clone(m.DataLiterals),
		headers:   maps.Clone(m.HeaderLiterals),
		transport: o.transport,
		metrics:   o.metrics,
	}
	if op.data == nil {
		op.data = map[string]string{}
	}
	if op.headers == nil {
		op.headers = map[string]string{}
	}
	if err := bind(m.Op(), m.DataConstructionArgs, ctorArgs, op.data, "the class does not declare it"); err != nil {
		return nil, err
	}
	if err := bind(m.Op(), m.HeaderConstructionArgs, ctorArgs, op.headers, "the class does not declare it"); err != nil {
		return nil, err
	}
	return op, nil
}

// bind writes the value of every bound argument into each of its fields.
func bind(op string, b ir.Bindings, args Args, dst map[string]string, missing string) error {
	for arg, fields := range b {
		v, ok := args[arg]
		if !ok {
			return apierr.Argumentf(op, "argument %q is referenced but %s", arg, missing)
		}
		s, err := ir.FormatValue(v)
		if err != nil {
			return apierr.Argumentf(op, "argument %q: %v", arg, err)
		}
		for _, f := range fields {
			dst[f] = s
		}
	}
	return nil
}

// validate checks the call-time argument set.
func (o *opener) validate(args Args) error {
	err := checkExact(o.method.Op(), "call", o.method.Arguments, args)
	if err != nil {
		o.metrics.ArgumentRejected(o.method.Class, o.method.Name)
	}
	return err
}

// build returns the request for one call. Call-time values are written over a
// copy of the construction state.
func (o *opener) build(args Args) (transport.Request, error) {
	if err := o.validate(args); err != nil {
		return transport.Request{}, err
	}
	m := o.method
	data := maps.Clone(o.data)
	headers := maps.Clone(o.headers)
	if err := bind(m.Op(), m.DataCallArgs, args, data, "was not supplied"); err != nil {
		return transport.Request{}, err
	}
	if err := bind(m.Op(), m.HeaderCallArgs, args, headers, "was not supplied"); err != nil {
		return transport.Request{}, err
	}

	// data always goes to the query string, whatever the verb; a data field
	// replaces a parameter of the same name already in the url
	target := m.URL
	if len(data) > 0 {
		u, err := url.Parse(m.URL)
		if err != nil {
			return transport.Request{}, apierr.Transport(m.Op(), err)
		}
		q := u.Query()
		for k, v := range data {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	return transport.Request{
		Method:  m.Verb,
		URL:     target,
		Headers: headers,
		Op:      m.Op(),
	}, nil
}

// open builds the request for args and performs it.
func (o *opener) open(ctx context.Context, args Args) (transport.Response, error) {
	req, err := o.build(args)
	if err != nil {
		return transport.Response{}, err
	}
	start := time.Now()
	resp, err := o.transport.Perform(ctx, req)
	status := resp.Status
	if err != nil {
		var ae *apierr.Error
		if !errors.As(err, &ae) {
			// custom transports may return plain errors
			ae = apierr.Transport(req.Op, err)
			err = ae
		}
		status = ae.Status
	}
	o.metrics.ObserveRequest(o.method.Class, o.method.Name, status, time.Since(start), err)
	return resp, err
}
