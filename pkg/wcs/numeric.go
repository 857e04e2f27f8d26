package wcs

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var errNotNumeric = errors.New("not a number")

// Numeric is the result of coercing a loosely typed value to a number.
// Text keeps the caller's own spelling of the value.
type Numeric struct {
	Value float64
	Text  string
	// Integer is true when the source was an integer type or an
	// integer-only string.
	Integer bool
}

// ParseNumeric coerces integers, floats, numeric strings and json.Number to
// a finite float64. Everything else, including bool, NaN and ±Inf, fails.
func ParseNumeric(v any) (Numeric, error) {
	switch n := v.(type) {
	case int:
		return intNumeric(int64(n)), nil
	case int8:
		return intNumeric(int64(n)), nil
	case int16:
		return intNumeric(int64(n)), nil
	case int32:
		return intNumeric(int64(n)), nil
	case int64:
		return intNumeric(n), nil
	case uint:
		return uintNumeric(uint64(n)), nil
	case uint8:
		return uintNumeric(uint64(n)), nil
	case uint16:
		return uintNumeric(uint64(n)), nil
	case uint32:
		return uintNumeric(uint64(n)), nil
	case uint64:
		return uintNumeric(n), nil
	case float32:
		return floatNumeric(float64(n), strconv.FormatFloat(float64(n), 'f', -1, 32))
	case float64:
		return floatNumeric(n, strconv.FormatFloat(n, 'f', -1, 64))
	case json.Number:
		return parseNumericString(string(n))
	case string:
		return parseNumericString(n)
	default:
		return Numeric{}, fmt.Errorf("%w: unsupported type %T", errNotNumeric, v)
	}
}

func intNumeric(n int64) Numeric {
	return Numeric{Value: float64(n), Text: strconv.FormatInt(n, 10), Integer: true}
}

func uintNumeric(n uint64) Numeric {
	return Numeric{Value: float64(n), Text: strconv.FormatUint(n, 10), Integer: true}
}

func floatNumeric(f float64, text string) (Numeric, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Numeric{}, fmt.Errorf("%w: %v is not finite", errNotNumeric, f)
	}
	return Numeric{Value: f, Text: text}, nil
}

func parseNumericString(s string) (Numeric, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Numeric{}, fmt.Errorf("%w: empty string", errNotNumeric)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Numeric{Value: float64(i), Text: s, Integer: true}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Numeric{}, fmt.Errorf("%w: %q", errNotNumeric, s)
	}
	return floatNumeric(f, s)
}

// IsIntegral reports whether the value has no fractional part.
func (n Numeric) IsIntegral() bool {
	return n.Value == math.Trunc(n.Value)
}
