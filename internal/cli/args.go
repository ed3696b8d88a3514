package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blimu-dev/webapi/pkg/client"
)

// ParseAssignments turns k=v pairs into arguments. A value that reads as a
// JSON number, boolean or quoted string takes that type; anything else is
// kept as text, so app_id=440 is the number 440 and app_id='"440"' the string.
func ParseAssignments(pairs []string) (client.Args, error) {
	args := client.Args{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid argument %q: want name=value", p)
		}
		if _, dup := args[k]; dup {
			return nil, fmt.Errorf("argument %q given twice", k)
		}
		args[k] = parseValue(v)
	}
	return args, nil
}

func parseValue(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	switch v.(type) {
	case json.Number, bool, string:
		return v
	default:
		return s
	}
}
