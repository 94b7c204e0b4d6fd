package scale

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Transformer rewrites width of opted in image elements. It could be reused
// for any number of documents and is safe for concurrent use as long as
// resolver is.
type Transformer struct {
	opts     Options
	resolver WidthResolver
	log      *zap.Logger
}

type candidate struct {
	elem Element
	src  string
	raw  any
	attr string
}

type measurement struct {
	width float64
	known bool
}

func New(opts Options, r WidthResolver, log *zap.Logger) *Transformer {
	if opts.Prescale == 0 {
		opts.Prescale = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Transformer{
		opts:     opts,
		resolver: r,
		log:      log.Named("scale"),
	}
}

// Transform processes tree in place. history lists names document had, the
// last one is used to resolve relative image references. Without history
// there is nothing to resolve against and tree is left as is. Only context
// cancellation is reported as error, everything else is logged.
func (t *Transformer) Transform(ctx context.Context, tree Tree, history []string) error {
	if len(history) == 0 {
		t.log.Debug("Document has no name, nothing to do")
		return nil
	}
	baseDir := path.Dir(filepath.ToSlash(history[len(history)-1]))

	// tree is not modified while being walked
	cands := t.collect(tree)
	if len(cands) == 0 {
		return nil
	}
	t.log.Debug("Images selected", zap.Int("count", len(cands)), zap.String("base", baseDir))

	var widths []measurement
	if t.opts.Workers > 1 && len(cands) > 1 {
		widths = t.prefetch(ctx, cands, baseDir)
	}

	for i, c := range cands {
		if err := ctx.Err(); err != nil {
			return err
		}

		var w measurement
		if widths != nil {
			w = widths[i]
		} else {
			w.width, w.known = t.resolver.NaturalWidth(ctx, c.src, baseDir)
		}

		m, err := ParseScale(c.raw, t.opts.Prescale)
		if err != nil {
			t.log.Warn("Unable to parse scale directive, skipping",
				zap.String("src", shorten(c.src)),
				zap.String("attr", c.attr),
				zap.String("value", describe(c.raw)),
				zap.String("type", fmt.Sprintf("%T", c.raw)),
				zap.Error(err))
			continue
		}
		if !w.known {
			continue
		}

		c.elem.SetAttribute(AttrWidth, w.width*m)
		t.log.Debug("Image width set",
			zap.String("src", shorten(c.src)),
			zap.Float64("natural", w.width),
			zap.Float64("scale", m),
			zap.Float64("width", w.width*m))
	}
	return ctx.Err()
}

func (t *Transformer) collect(tree Tree) []candidate {
	var cands []candidate
	tree.Walk(func(e Element) {
		src, ok := e.Attribute(AttrSrc)
		if !ok {
			return
		}
		attr := AttrScale
		raw, ok := e.Attribute(AttrScale)
		if t.opts.AllowAbbreviation {
			if v, found := e.Attribute(AttrScaleAlias); found {
				attr, raw, ok = AttrScaleAlias, v, true
			}
		}
		if !ok {
			return
		}
		cands = append(cands, candidate{elem: e, src: sourceRef(src), raw: raw, attr: attr})
	})
	return cands
}

// prefetch measures all images with bounded concurrency. Results are kept in
// document order.
func (t *Transformer) prefetch(ctx context.Context, cands []candidate, baseDir string) []measurement {
	widths := make([]measurement, len(cands))

	var g errgroup.Group
	g.SetLimit(t.opts.Workers)
	for i := range cands {
		g.Go(func() error {
			widths[i].width, widths[i].known = t.resolver.NaturalWidth(ctx, cands[i].src, baseDir)
			return nil
		})
	}
	_ = g.Wait()
	return widths
}

func sourceRef(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// data URLs could be huge
func shorten(src string) string {
	const maxLen = 80
	if len(src) <= maxLen {
		return src
	}
	return src[:maxLen] + "..."
}
