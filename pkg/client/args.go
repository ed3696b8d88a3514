package client

import (
	"sort"
	"strings"

	"github.com/blimu-dev/webapi/pkg/apierr"
)

// Args are keyword arguments, for a constructor or a method call.
type Args map[string]any

// checkExact fails unless the keys of args are exactly the declared names.
func checkExact(op, what string, declared []string, args Args) error {
	want := make(map[string]bool, len(declared))
	for _, n := range declared {
		want[n] = true
	}
	var missing, unexpected []string
	for _, n := range declared {
		if _, ok := args[n]; !ok {
			missing = append(missing, n)
		}
	}
	for n := range args {
		if !want[n] {
			unexpected = append(unexpected, n)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	sort.Strings(unexpected)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(unexpected, ", "))
	}
	return apierr.Argumentf(op, "%s arguments must be exactly [%s]: %s",
		what, strings.Join(declared, ", "), strings.Join(parts, "; "))
}
