package client

import (
	"github.com/rs/zerolog"

	"github.com/blimu-dev/webapi/pkg/cache"
	"github.com/blimu-dev/webapi/pkg/metrics"
	"github.com/blimu-dev/webapi/pkg/transport"
)

type options struct {
	transport transport.Transport
	stores    cache.Factory
	logger    zerolog.Logger
	metrics   *metrics.Collector
}

// Option configures an API and the classes and instances it creates.
type Option func(*options)

// WithTransport sets the transport used by every method call.
func WithTransport(t transport.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithCache sets the factory that gives each instance its private store.
func WithCache(f cache.Factory) Option {
	return func(o *options) { o.stores = f }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records transport and cache metrics in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

func newOptions(opts []Option) options {
	o := options{
		stores: cache.MemoryFactory(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.transport == nil {
		o.transport = transport.NewHTTP(transport.DefaultHTTPConfig())
	}
	return o
}
