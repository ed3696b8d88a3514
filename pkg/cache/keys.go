package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key builds the cache key of a call: the method name followed by the
// canonical JSON of the (name, value) pairs sorted by name. Values keep their
// type, so 440 and "440" are different keys while 440 and 440.0 are the same.
// Only scalar values can be part of a key.
func Key(method string, args map[string]any) (string, error) {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([][2]any, 0, len(names))
	for _, name := range names {
		v, err := canonical(args[name])
		if err != nil {
			return "", fmt.Errorf("argument %q: %w", name, err)
		}
		pairs = append(pairs, [2]any{name, v})
	}
	encoded, err := json.Marshal(pairs)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(':')
	b.Write(encoded)
	return b.String(), nil
}

func canonical(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, json.Number:
		return x, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return x, nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	default:
		return nil, fmt.Errorf("value of type %T cannot be part of a cache key", v)
	}
}
