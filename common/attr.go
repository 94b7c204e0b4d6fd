package common

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// AttrString formats attribute value the way it appears in markup. Numbers
// use the shortest decimal form without exponent, sequences are space
// separated.
func AttrString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			parts = append(parts, AttrString(rv.Index(i).Interface()))
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprint(v)
}
