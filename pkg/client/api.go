// Package client turns compiled classes into callable client instances.
//
// Each instance holds, per method, the request state built from literals and
// construction-time arguments. A call overlays its call-time arguments on a
// copy of that state, sends the request and decodes the JSON response. Methods
// with a refresh method are served from the instance's cache, keyed by the
// exact call-time arguments.
package client

import (
	"github.com/blimu-dev/webapi/pkg/apierr"
	"github.com/blimu-dev/webapi/pkg/ir"
)

// API is the set of classes of a compiled schema.
type API struct {
	desc    *ir.API
	classes map[string]*Class
}

// NewAPI creates one Class per compiled class. Options are shared by all.
func NewAPI(desc *ir.API, opts ...Option) *API {
	o := newOptions(opts)
	a := &API{desc: desc, classes: make(map[string]*Class, len(desc.Classes))}
	for _, c := range desc.Classes {
		a.classes[c.Name] = &Class{desc: c, opts: o}
	}
	return a
}

// Class returns the class named name.
func (a *API) Class(name string) (*Class, bool) {
	c, ok := a.classes[name]
	return c, ok
}

// Names returns the class names in declaration order.
func (a *API) Names() []string {
	out := make([]string, 0, len(a.desc.Classes))
	for _, c := range a.desc.Classes {
		out = append(out, c.Name)
	}
	return out
}

// Variables returns the resolved global variables.
func (a *API) Variables() map[string]string { return a.desc.Variables }

// Descriptor returns the compiled API.
func (a *API) Descriptor() *ir.API { return a.desc }

// New constructs an instance of the named class.
func (a *API) New(class string, args Args) (*Instance, error) {
	c, ok := a.classes[class]
	if !ok {
		return nil, apierr.Argumentf(class, "unknown class")
	}
	return c.New(args)
}
