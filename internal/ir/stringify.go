package ir

import (
	"fmt"
	"reflect"
	"strconv"
)

// NullString is the string form of a nil value.
const NullString = "null"

// Interpolator is implemented by values that render themselves by
// interpolation (templates). ToString recurses into them.
type Interpolator interface {
	Interpolate() string
}

// ToString is the canonical value-to-string conversion used whenever a
// value has no statically known slot type.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return NullString
	case Interpolator:
		if isNilPointer(val) {
			return NullString
		}
		return val.Interpolate()
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uintptr:
		return strconv.FormatUint(uint64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case error:
		return val.Error()
	case fmt.Stringer:
		if isNilPointer(val) {
			return NullString
		}
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}

// isNilPointer catches typed nils hidden behind an interface.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
