// pkg/converter/values.go
package converter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrNotNumeric is returned when a value cannot be coerced to a number
var ErrNotNumeric = errors.New("value is not numeric")

// IsNull determines if a value should be treated as missing
func IsNull(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	default:
		return false
	}
}

// ToInteger coerces a value to int64.
// Floats are truncated toward zero; NaN, infinities and values outside the
// int64 range are rejected. Booleans are not numbers here and are rejected
// rather than read as 1 and 0.
func ToInteger(value interface{}) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("%w: nil value", ErrNotNumeric)
	case bool:
		return 0, fmt.Errorf("%w: bool value %t", ErrNotNumeric, v)
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt(v)
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case string:
		return parseInteger(v)
	case []byte:
		return parseInteger(string(v))
	default:
		return 0, fmt.Errorf("%w: cannot convert %T", ErrNotNumeric, value)
	}
}

func uintToInt(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: uint64 value overflows int64", ErrNotNumeric)
	}
	return int64(v), nil
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNotNumeric, f)
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v overflows int64", ErrNotNumeric, f)
	}
	return int64(f), nil
}

func parseInteger(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty string", ErrNotNumeric)
	}
	if i, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: cannot parse %q", ErrNotNumeric, s)
	}
	return floatToInt(f)
}

// ToText renders a value as text; nil renders as the empty string
func ToText(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}
