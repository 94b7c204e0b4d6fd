// Package imgsize determines natural (intrinsic) width of images referenced
// by documents: local raster and SVG files as well as data URLs.
package imgsize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/url"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"nscale/config"
	"nscale/dataurl"
)

var (
	ErrSourceUnreadable = errors.New("image source unreadable")
	ErrSVGMalformed     = errors.New("malformed SVG")
)

const svgMediaType = "image/svg+xml"

// longest part of reference to put in the log
const maxLoggedRef = 80

// Resolver finds natural width of referenced images. It is safe for
// concurrent use.
type Resolver struct {
	dialect    config.DataURLDialect
	autoOrient bool
	cache      *Cache
	log        *zap.Logger
}

// NewResolver creates resolver according to transform configuration. cache
// may be nil.
func NewResolver(cfg *config.TransformConfig, cache *Cache, log *zap.Logger) *Resolver {
	return &Resolver{
		dialect:    cfg.DataURLs,
		autoOrient: cfg.AutoOrient,
		cache:      cache,
		log:        log,
	}
}

// NaturalWidth returns natural width in pixels of image referenced by src.
// Relative paths are resolved against baseDir (posix style). Any failure is
// logged and reported as unknown width.
func (r *Resolver) NaturalWidth(ctx context.Context, src, baseDir string) (float64, bool) {
	w, err := r.Resolve(ctx, src, baseDir)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Warn("Unable to determine natural width of image, skipping", zap.String("src", shorten(src)), zap.Error(err))
		}
		return 0, false
	}
	if !(w > 0) || math.IsInf(w, 0) {
		r.log.Warn("Natural width of image is not a positive number, skipping", zap.String("src", shorten(src)), zap.Float64("width", w))
		return 0, false
	}
	return w, true
}

// Resolve is NaturalWidth which reports errors instead of logging them.
func (r *Resolver) Resolve(ctx context.Context, src, baseDir string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if isRemote(src) {
		return 0, fmt.Errorf("%w: remote images are never fetched", ErrSourceUnreadable)
	}

	switch r.dialect {
	case config.DataURLDialectSimplified:
		if dataurl.HasPrefix(src, "image/") {
			du, err := dataurl.Parse(src)
			if err != nil {
				return 0, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
			}
			return r.rasterWidth(du.Body)
		}
	default:
		if du, err := dataurl.Parse(src); err == nil {
			if du.MediaType != svgMediaType {
				return r.rasterWidth(du.Body)
			}
			text, err := du.Text()
			if err != nil {
				return 0, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
			}
			return SVGWidth([]byte(text))
		}
	}
	w, err := r.fileWidth(path.Join(baseDir, src))
	if err != nil && errors.Is(err, fs.ErrNotExist) && strings.ContainsRune(src, '%') {
		// references coming from rendered markup are URL escaped
		if name, uerr := url.PathUnescape(src); uerr == nil && name != src {
			if uw, uerr := r.fileWidth(path.Join(baseDir, name)); uerr == nil {
				return uw, nil
			}
		}
	}
	return w, err
}

func (r *Resolver) rasterWidth(data []byte) (float64, error) {
	w, err := RasterWidth(bytes.NewReader(data), r.autoOrient)
	if err != nil {
		return 0, err
	}
	return float64(w), nil
}

func (r *Resolver) fileWidth(name string) (float64, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	if !fi.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a regular file", ErrSourceUnreadable, name)
	}

	if w, ok := r.cache.Lookup(name, fi, r.autoOrient); ok {
		r.log.Debug("Natural width found in cache", zap.String("file", name), zap.Float64("width", w))
		return w, nil
	}

	var w float64
	if strings.EqualFold(path.Ext(name), ".svg") {
		data, err := os.ReadFile(name)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		}
		if w, err = SVGWidth(data); err != nil {
			return 0, err
		}
	} else {
		f, err := os.Open(name)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		}
		defer f.Close()

		iw, err := RasterWidth(f, r.autoOrient)
		if err != nil {
			return 0, err
		}
		w = float64(iw)
	}

	if !(w > 0) || math.IsInf(w, 0) {
		return w, nil
	}
	if err := r.cache.Store(name, fi, r.autoOrient, w); err != nil {
		r.log.Warn("Unable to store natural width in cache", zap.String("file", name), zap.Error(err))
	}
	return w, nil
}

func isRemote(src string) bool {
	s := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "//")
}

func shorten(src string) string {
	if len(src) <= maxLoggedRef {
		return src
	}
	return src[:maxLoggedRef] + "..."
}
