package ir

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// FormatValue renders a scalar schema or argument value as the string written
// into a query parameter or header. Maps, slices and nil are rejected.
func FormatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", fmt.Errorf("null is not a valid value")
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return cast.ToStringE(x)
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}
