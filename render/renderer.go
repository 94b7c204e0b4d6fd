// Package render turns markdown and HTML files into HTML with image widths
// set to their natural size.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"nscale/config"
	"nscale/htmltree"
	"nscale/imgsize"
	"nscale/mdext"
	"nscale/scale"
)

// Renderer keeps everything needed to process documents with the same
// configuration.
type Renderer struct {
	cfg   *config.DocumentConfig
	cache *imgsize.Cache
	tr    *scale.Transformer
	md    goldmark.Markdown
	log   *zap.Logger
}

// New prepares renderer. Width cache is opened when configured, Close must
// be called to release it.
func New(cfg *config.DocumentConfig, log *zap.Logger) (*Renderer, error) {
	var (
		cache *imgsize.Cache
		err   error
	)
	if cfg.Transform.CachePath != "" {
		if cache, err = imgsize.OpenCache(cfg.Transform.CachePath); err != nil {
			return nil, err
		}
		log.Debug("Using width cache", zap.String("file", cfg.Transform.CachePath))
	}

	resolver := imgsize.NewResolver(&cfg.Transform, cache, log.Named("imgsize"))
	tr := scale.New(TransformOptions(&cfg.Transform), resolver, log)

	exts := []goldmark.Extender{mdext.ImageAttributes}
	if cfg.Markdown.GFM {
		exts = append(exts, extension.GFM)
	}
	if cfg.Markdown.Stage == config.StageAst {
		exts = append(exts, mdext.NaturalSize(tr))
	}
	var ropts []goldmark.Option
	if cfg.Markdown.UnsafeHTML {
		ropts = append(ropts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	if cfg.Markdown.HardWraps {
		ropts = append(ropts, goldmark.WithRendererOptions(html.WithHardWraps()))
	}
	if cfg.Markdown.XHTML {
		ropts = append(ropts, goldmark.WithRendererOptions(html.WithXHTML()))
	}

	return &Renderer{
		cfg:   cfg,
		cache: cache,
		tr:    tr,
		md:    goldmark.New(append(ropts, goldmark.WithExtensions(exts...))...),
		log:   log,
	}, nil
}

// TransformOptions converts configuration to transform options.
func TransformOptions(cfg *config.TransformConfig) scale.Options {
	return scale.Options{
		Prescale:          cfg.Prescale,
		AllowAbbreviation: cfg.AllowAbbreviation,
		Workers:           cfg.Workers,
	}
}

func (r *Renderer) Close() error {
	return r.cache.Close()
}

// Markdown converts markdown source to HTML fragment. name is path of the
// source, images are looked for relative to it.
func (r *Renderer) Markdown(ctx context.Context, src []byte, name string, w io.Writer) error {
	pc := mdext.NewContext(ctx, name)

	if r.cfg.Markdown.Stage == config.StageAst {
		if err := r.md.Convert(src, w, parser.WithContext(pc)); err != nil {
			return fmt.Errorf("unable to convert markdown: %w", err)
		}
		return mdext.Err(pc)
	}

	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf, parser.WithContext(pc)); err != nil {
		return fmt.Errorf("unable to convert markdown: %w", err)
	}
	doc, err := htmltree.ParseFragment(&buf)
	if err != nil {
		return err
	}
	return r.transform(ctx, doc, name, w)
}

// HTML processes complete HTML document.
func (r *Renderer) HTML(ctx context.Context, in io.Reader, name string, w io.Writer) error {
	doc, err := htmltree.Parse(in)
	if err != nil {
		return err
	}
	return r.transform(ctx, doc, name, w)
}

func (r *Renderer) transform(ctx context.Context, doc *htmltree.Document, name string, w io.Writer) error {
	if err := r.tr.Transform(ctx, doc, []string{name}); err != nil {
		return err
	}
	if err := doc.Render(w); err != nil {
		return fmt.Errorf("unable to write HTML: %w", err)
	}
	return nil
}
