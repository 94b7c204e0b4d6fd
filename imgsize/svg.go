package imgsize

import (
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/beevik/etree"

	"nscale/common"
)

var viewBoxSepRe = regexp.MustCompile(`\s+`)

// SVGWidth returns width of SVG image declared by its root element: "width"
// attribute if present, otherwise third value of "viewBox". Text is expected
// to be already decoded to UTF-8, XML encoding declaration is ignored.
func SVGWidth(text []byte) (float64, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := doc.ReadFromBytes(text); err != nil {
		return 0, fmt.Errorf("%w: unable to parse: %w", ErrSVGMalformed, err)
	}
	root := doc.Root()
	if root == nil {
		return 0, fmt.Errorf("%w: no root element found", ErrSVGMalformed)
	}

	if attr := root.SelectAttr("width"); attr != nil {
		w, ok := common.ParseFloatPrefix(attr.Value)
		if !ok {
			return 0, fmt.Errorf("%w: invalid width attribute value %s", ErrSVGMalformed, strconv.Quote(attr.Value))
		}
		return w, nil
	}

	if attr := root.SelectAttr("viewBox"); attr != nil {
		parts := viewBoxSepRe.Split(attr.Value, -1)
		if len(parts) != 4 {
			return 0, fmt.Errorf("%w: invalid viewBox attribute value %s, it must have four numbers", ErrSVGMalformed, strconv.Quote(attr.Value))
		}
		var box [4]float64
		for i, p := range parts {
			v, ok := common.ParseFloatPrefix(p)
			if !ok {
				return 0, fmt.Errorf("%w: invalid viewBox attribute value %s, it must have four numbers", ErrSVGMalformed, strconv.Quote(attr.Value))
			}
			box[i] = v
		}
		// min-x, min-y, width, height
		return box[2], nil
	}

	return 0, fmt.Errorf("%w: no width or viewBox attribute on <%s>", ErrSVGMalformed, root.FullTag())
}
