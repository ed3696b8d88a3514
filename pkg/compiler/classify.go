package compiler

import (
	"slices"

	"github.com/blimu-dev/webapi/pkg/ir"
)

// Classify returns the binding scope of an @name reference. Names the method
// declares are call-time and shadow any construction-time argument of the
// same name; every other name is assumed to be a construction-time argument.
func Classify(name string, methodArgs []string) ir.Scope {
	if slices.Contains(methodArgs, name) {
		return ir.CallTime
	}
	return ir.ConstructionTime
}

// bindingSet collects the argument bindings of one request location.
type bindingSet struct {
	construction ir.Bindings
	call         ir.Bindings
}

func newBindingSet() bindingSet {
	return bindingSet{construction: ir.Bindings{}, call: ir.Bindings{}}
}

func (b bindingSet) add(scope ir.Scope, arg, field string) {
	if scope == ir.CallTime {
		b.call.Add(arg, field)
		return
	}
	b.construction.Add(arg, field)
}
