package client

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blimu-dev/webapi/pkg/apierr"
	"github.com/blimu-dev/webapi/pkg/cache"
	"github.com/blimu-dev/webapi/pkg/ir"
)

// Class constructs client instances of one compiled class.
type Class struct {
	desc *ir.Class
	opts options
}

// Name returns the class name.
func (c *Class) Name() string { return c.desc.Name }

// Arguments returns the declared construction-time arguments.
func (c *Class) Arguments() []string { return slices.Clone(c.desc.Arguments) }

// Descriptor returns the compiled class.
func (c *Class) Descriptor() *ir.Class { return c.desc }

// New builds an instance. args must hold exactly the declared
// construction-time arguments. No request is sent.
func (c *Class) New(args Args) (*Instance, error) {
	if err := checkExact(c.desc.Name, "constructor", c.desc.Arguments, args); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	inst := &Instance{
		id:      id,
		class:   c.desc.Name,
		store:   c.opts.stores(id),
		methods: make(map[string]Method, len(c.desc.Methods)),
		cached:  map[string]*cached{},
		logger:  c.opts.logger.With().Str("class", c.desc.Name).Str("instance", id).Logger(),
	}

	for _, m := range c.desc.Methods {
		o, err := newOpener(m, args, c.opts)
		if err != nil {
			return nil, err
		}
		if !m.Cached() {
			inst.methods[m.Name] = decoding(m.Op(), direct(o), c.opts.metrics, m.Class, m.Name)
			continue
		}
		cm := &cached{opener: o, store: inst.store, logger: inst.logger, metrics: c.opts.metrics}
		inst.methods[m.Name] = decoding(m.Op(), cm.getOrFetch, c.opts.metrics, m.Class, m.Name)
		inst.methods[m.RefreshName] = discarding(cm.refresh)
		inst.cached[m.Name] = cm
	}

	c.opts.metrics.InstanceCreated(c.desc.Name)
	inst.logger.Debug().Int("methods", len(inst.methods)).Msg("instance constructed")
	return inst, nil
}

// Instance is a client bound to one set of construction-time arguments. It
// owns a private response cache. Instances are safe for concurrent use.
type Instance struct {
	id      string
	class   string
	store   cache.Store
	methods map[string]Method
	cached  map[string]*cached
	logger  zerolog.Logger
}

// ID returns the instance's unique identifier.
func (i *Instance) ID() string { return i.id }

// Class returns the name of the instance's class.
func (i *Instance) Class() string { return i.class }

// Method returns the callable named name: a method or a refresh method.
func (i *Instance) Method(name string) (Method, bool) {
	m, ok := i.methods[name]
	return m, ok
}

// Methods returns the names of every callable, sorted.
func (i *Instance) Methods() []string {
	out := make([]string, 0, len(i.methods))
	for n := range i.methods {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Call invokes the callable named name with exactly its declared arguments.
func (i *Instance) Call(ctx context.Context, name string, args Args) (any, error) {
	m, ok := i.methods[name]
	if !ok {
		return nil, apierr.Argumentf(i.class, "unknown method %q", name)
	}
	return m(ctx, args)
}

// ClearCache drops every cached response of the instance.
func (i *Instance) ClearCache(ctx context.Context) error {
	return i.store.Clear(ctx)
}

// Forget drops the cached response of one call of a cached method, so the
// next call with the same arguments fetches again.
func (i *Instance) Forget(ctx context.Context, method string, args Args) error {
	c, ok := i.cached[method]
	if !ok {
		return apierr.Argumentf(i.class, "%q is not a cached method", method)
	}
	return c.forget(ctx, args)
}
