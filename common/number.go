package common

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	pstrconv "github.com/tdewolff/parse/v2/strconv"
)

const infinity = "Infinity"

// ParseFloatPrefix parses the longest prefix of s which forms a decimal
// number, ignoring leading white space and whatever follows the number, so
// "120px" yields 120 and " 1.5%" yields 1.5. "Infinity" with optional sign
// is recognized. Returns false when s does not start with a number.
func ParseFloatPrefix(s string) (float64, bool) {
	// JavaScript white space: Unicode spaces and BOM, but not NEL
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) && r != '\u0085' || r == '\ufeff'
	})
	if len(s) == 0 {
		return math.NaN(), false
	}

	sign, rest := 1.0, s
	switch rest[0] {
	case '-':
		sign, rest = -1.0, rest[1:]
	case '+':
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, infinity) {
		return math.Inf(int(sign)), true
	}

	// tdewolff reports how many bytes form a number, actual conversion is
	// left to strconv to get correctly rounded result
	_, n := pstrconv.ParseFloat([]byte(s))
	if n == 0 {
		return math.NaN(), false
	}
	// dangling exponent or sign ("2em") is not part of the number
	for ; n > 0; n-- {
		v, err := strconv.ParseFloat(s[:n], 64)
		if err == nil {
			return v, true
		}
		// out of range values come back as +-Inf with an error
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return v, true
		}
	}
	return math.NaN(), false
}
