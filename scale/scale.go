// Package scale sets display width of images to their natural width
// multiplied by author supplied factor.
//
// Image elements opt in with data-scale-to-natural-size attribute (or its
// shorter alias data-nscale when abbreviation is allowed). Directive value may
// be boolean true, a number, an empty string or a numeric string optionally
// ending with '%'. For every such element which also has src attribute the
// transform writes numeric width attribute equal to
//
//	naturalWidth * prescale * directive
//
// Elements for which either natural width or directive could not be
// determined are left untouched, problems are reported as warnings.
package scale

import (
	"context"
)

// Attribute names transform reads and writes.
const (
	AttrSrc        = "src"
	AttrScale      = "data-scale-to-natural-size"
	AttrScaleAlias = "data-nscale"
	AttrWidth      = "width"
)

// Element is a node of document tree which carries attributes. Values are
// whatever tree keeps: nil, bool, numbers, string, []byte or sequences.
type Element interface {
	Attribute(name string) (any, bool)
	SetAttribute(name string, value any)
}

// Tree is a parsed document. Walk must call fn for every element in document
// order.
type Tree interface {
	Walk(fn func(Element))
}

// WidthResolver finds natural width of referenced image. Relative references
// are resolved against baseDir. Unknown width is reported with false, it is
// up to resolver to explain why.
type WidthResolver interface {
	NaturalWidth(ctx context.Context, src, baseDir string) (float64, bool)
}

// Options are fixed for the life of Transformer.
type Options struct {
	// Prescale multiplies every directive value. Zero value means unset and
	// is treated as 1, so zero prescale cannot be expressed.
	Prescale float64
	// AllowAbbreviation enables data-nscale alias.
	AllowAbbreviation bool
	// Workers limits number of images being measured at the same time.
	Workers int
}

// DefaultOptions returns options transform uses when nothing is configured.
func DefaultOptions() Options {
	return Options{Prescale: 1, Workers: 1}
}
