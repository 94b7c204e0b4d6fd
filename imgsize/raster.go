package imgsize

import (
	"bufio"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// filetype needs that many bytes to recognize any of known formats
const sniffLen = 262

// RasterWidth returns width in pixels of raster image read from r. When
// autoOrient is set JPEG images are fully decoded so EXIF orientation could
// be applied and width reported is the one image has when displayed, otherwise
// only image header is read.
func RasterWidth(r io.Reader, autoOrient bool) (int, error) {
	br := bufio.NewReaderSize(r, 4096)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return 0, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	kind, _ := filetype.Match(head)
	if kind == filetype.Unknown {
		return 0, fmt.Errorf("%w: unrecognized image format", ErrSourceUnreadable)
	}
	if !filetype.IsImage(head) {
		return 0, fmt.Errorf("%w: not an image (%s)", ErrSourceUnreadable, kind.MIME.Value)
	}

	if autoOrient && kind == matchers.TypeJpeg {
		img, err := imaging.Decode(br, imaging.AutoOrientation(true))
		if err != nil {
			return 0, fmt.Errorf("%w: unable to decode %s: %w", ErrSourceUnreadable, kind.MIME.Value, err)
		}
		return img.Bounds().Dx(), nil
	}

	cfg, _, err := image.DecodeConfig(br)
	if err != nil {
		return 0, fmt.Errorf("%w: unable to decode %s: %w", ErrSourceUnreadable, kind.MIME.Value, err)
	}
	return cfg.Width, nil
}
