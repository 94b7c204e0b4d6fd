// Package dataurl processes "data:" URLs the way browsers do: media type with
// parameters, optional base64 encoding and percent encoded body.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
)

const scheme = "data:"

var (
	ErrNotDataURL = errors.New("not a data URL")
	ErrMalformed  = errors.New("malformed data URL")
)

// defaults used when media type is absent or cannot be parsed
const (
	defaultMediaType = "text/plain"
	defaultCharset   = "US-ASCII"
)

// DataURL is a parsed "data:" URL.
type DataURL struct {
	// MediaType is lower cased "type/subtype" essence.
	MediaType string
	// Params holds media type parameters, names are lower cased.
	Params map[string]string
	// Body is decoded payload.
	Body []byte
}

// HasPrefix reports whether s looks like a data URL with media type
// starting with prefix, for example "image/". No parsing is done.
func HasPrefix(s, prefix string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= len(scheme)+len(prefix) && strings.EqualFold(s[:len(scheme)+len(prefix)], scheme+prefix)
}

// Parse processes data URL. It fails with ErrNotDataURL when s has different
// scheme and with ErrMalformed when body cannot be decoded.
func Parse(s string) (*DataURL, error) {
	s = strings.Trim(s, "\x00\x01\x02\x03\x04\x05\x06\x07\x08\t\n\v\f\r\x0e\x0f\x10\x11\x12\x13\x14\x15\x16\x17\x18\x19\x1a\x1b\x1c\x1d\x1e\x1f ")
	if len(s) < len(scheme) || !strings.EqualFold(s[:len(scheme)], scheme) {
		return nil, ErrNotDataURL
	}
	// fragment is not part of the payload
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	s = s[len(scheme):]

	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: no comma", ErrMalformed)
	}
	mediaType, rawBody := strings.TrimSpace(s[:comma]), s[comma+1:]

	body := percentDecode(rawBody)

	if b, ok := cutBase64(mediaType); ok {
		mediaType = b
		decoded, err := forgivingBase64(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		body = decoded
	}

	if strings.HasPrefix(mediaType, ";") {
		mediaType = defaultMediaType + mediaType
	}

	du := &DataURL{Body: body}
	essence, params, err := mime.ParseMediaType(mediaType)
	if errors.Is(err, mime.ErrInvalidMediaParameter) {
		// "image/svg+xml;utf8" and similar - keep the type, drop parameters
		err, params = nil, map[string]string{}
	}
	if err != nil || !strings.Contains(essence, "/") {
		du.MediaType = defaultMediaType
		du.Params = map[string]string{"charset": defaultCharset}
		return du, nil
	}
	du.MediaType, du.Params = essence, params
	return du, nil
}

// Text returns body decoded to UTF-8 using charset parameter. Unknown or absent
// labels fall back to UTF-8.
func (du *DataURL) Text() (string, error) {
	enc, _ := charset.Lookup(du.Params["charset"])
	if enc == nil {
		enc = unicode.UTF8
	}
	out, err := enc.NewDecoder().Bytes(du.Body)
	if err != nil {
		return "", fmt.Errorf("unable to decode data URL body: %w", err)
	}
	return string(out), nil
}

// cutBase64 strips ";base64" (case insensitive, optional spaces before it)
// from the end of media type.
func cutBase64(mediaType string) (string, bool) {
	const suffix = "base64"
	if len(mediaType) < len(suffix) || !strings.EqualFold(mediaType[len(mediaType)-len(suffix):], suffix) {
		return mediaType, false
	}
	rest := strings.TrimRight(mediaType[:len(mediaType)-len(suffix)], " ")
	if !strings.HasSuffix(rest, ";") {
		return mediaType, false
	}
	return rest[:len(rest)-1], true
}

// percentDecode replaces valid %XX sequences, leaving everything else as is.
func percentDecode(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			out = append(out, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		out = append(out, s[i])
	}
	return out
}

func forgivingBase64(data []byte) ([]byte, error) {
	clean := make([]byte, 0, len(data))
	for _, c := range data {
		switch c {
		case ' ', '\t', '\n', '\f', '\r':
		default:
			clean = append(clean, c)
		}
	}
	if len(clean)%4 == 0 {
		clean = []byte(strings.TrimSuffix(strings.TrimSuffix(string(clean), "="), "="))
	}
	if len(clean)%4 == 1 {
		return nil, errors.New("invalid base64 length")
	}
	return base64.RawStdEncoding.DecodeString(string(clean))
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
