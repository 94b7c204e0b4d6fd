package scale

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"nscale/common"
)

var ErrMalformedScale = errors.New("malformed scale directive")

// ParseScale converts raw directive value to final multiplier (prescale
// included). nil stands for directive without value.
func ParseScale(raw any, prescale float64) (float64, error) {
	base, err := directiveValue(raw)
	if err != nil {
		return 0, err
	}
	m := prescale * base
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, fmt.Errorf("%w: %s (%T) does not produce finite multiplier", ErrMalformedScale, describe(raw), raw)
	}
	return m, nil
}

func directiveValue(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("%w: no value", ErrMalformedScale)
	case bool:
		if !v {
			return 0, fmt.Errorf("%w: false", ErrMalformedScale)
		}
		return 1, nil
	case string:
		return stringValue(v)
	case []byte:
		return stringValue(string(v))
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Slice, reflect.Array:
		return 0, fmt.Errorf("%w: sequence %s (%T)", ErrMalformedScale, describe(raw), raw)
	}
	return 0, fmt.Errorf("%w: unsupported value %s (%T)", ErrMalformedScale, describe(raw), raw)
}

func stringValue(s string) (float64, error) {
	if s == "" {
		return 1, nil
	}
	if num, ok := strings.CutSuffix(s, "%"); ok {
		v, ok := common.ParseFloatPrefix(num)
		if !ok {
			return 0, fmt.Errorf("%w: %q is not a percentage", ErrMalformedScale, s)
		}
		return v / 100, nil
	}
	v, ok := common.ParseFloatPrefix(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedScale, s)
	}
	return v, nil
}

// describe formats raw attribute value for diagnostics.
func describe(raw any) string {
	switch v := raw.(type) {
	case string:
		return strconv.Quote(v)
	case []byte:
		return strconv.Quote(string(v))
	case nil:
		return "null"
	}
	return fmt.Sprintf("%v", raw)
}
