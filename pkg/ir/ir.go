// Package ir holds the compiled, immutable form of a schema document.
package ir

import "sort"

// Scope is the binding time of an argument reference.
type Scope int

const (
	// ConstructionTime arguments are bound once, when a client instance is built.
	ConstructionTime Scope = iota
	// CallTime arguments are bound on every invocation.
	CallTime
)

func (s Scope) String() string {
	switch s {
	case ConstructionTime:
		return "construction"
	case CallTime:
		return "call"
	default:
		return "unknown"
	}
}

// Location is the part of a request a field is written to.
type Location string

const (
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
)

// Bindings maps an argument name to every field it fills.
type Bindings map[string][]string

// Add records that arg fills field. Fields stay sorted.
func (b Bindings) Add(arg, field string) {
	fields := append(b[arg], field)
	sort.Strings(fields)
	b[arg] = fields
}

// Args returns the bound argument names, sorted.
func (b Bindings) Args() []string {
	out := make([]string, 0, len(b))
	for a := range b {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Method is a compiled method descriptor.
type Method struct {
	Class string
	Name  string
	URL   string
	Verb  string
	// Arguments are the declared call-time argument names.
	Arguments []string

	DataLiterals   map[string]string
	HeaderLiterals map[string]string

	DataConstructionArgs   Bindings
	DataCallArgs           Bindings
	HeaderConstructionArgs Bindings
	HeaderCallArgs         Bindings

	// RefreshName is empty for methods that bypass the cache.
	RefreshName string
}

// Op names the method for errors and logs, e.g. "Inventory.get_items".
func (m *Method) Op() string { return m.Class + "." + m.Name }

// Cached reports whether responses of m are cached.
func (m *Method) Cached() bool { return m.RefreshName != "" }

// Bindings returns the bindings for a scope and location.
func (m *Method) Bindings(scope Scope, loc Location) Bindings {
	switch {
	case scope == ConstructionTime && loc == LocationQuery:
		return m.DataConstructionArgs
	case scope == ConstructionTime && loc == LocationHeader:
		return m.HeaderConstructionArgs
	case scope == CallTime && loc == LocationQuery:
		return m.DataCallArgs
	default:
		return m.HeaderCallArgs
	}
}

// Class is a compiled class descriptor.
type Class struct {
	Name string
	// Fields are the class's static values, stringified.
	Fields map[string]string
	// Arguments are the declared construction-time argument names.
	Arguments []string
	// Methods are in declaration order.
	Methods []*Method
}

// Method returns the method named name.
func (c *Class) Method(name string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// API is a compiled schema document.
type API struct {
	Variables map[string]string
	// Classes are in declaration order.
	Classes []*Class
}

// Class returns the class named name.
func (a *API) Class(name string) (*Class, bool) {
	for _, c := range a.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
