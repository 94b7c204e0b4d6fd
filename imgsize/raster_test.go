package imgsize

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, testImage(w, h)); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, testImage(w, h), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// withOrientation inserts minimal EXIF APP1 segment carrying orientation tag
// right after SOI marker.
func withOrientation(jpegData []byte, o byte) []byte {
	payload := []byte("Exif\x00\x00")
	payload = append(payload,
		'M', 'M', 0x00, 0x2A, // big endian TIFF header
		0x00, 0x00, 0x00, 0x08, // offset of IFD0
		0x00, 0x01, // one entry
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, o, 0x00, 0x00, // orientation, SHORT, 1
		0x00, 0x00, 0x00, 0x00, // no next IFD
	)
	size := len(payload) + 2

	out := append([]byte{}, jpegData[:2]...)
	out = append(out, 0xFF, 0xE1, byte(size>>8), byte(size))
	out = append(out, payload...)
	return append(out, jpegData[2:]...)
}

func TestRasterWidth(t *testing.T) {
	gifBuf := new(bytes.Buffer)
	if err := gif.Encode(gifBuf, testImage(17, 5), nil); err != nil {
		t.Fatalf("gif.Encode() error = %v", err)
	}
	bmpBuf := new(bytes.Buffer)
	if err := bmp.Encode(bmpBuf, testImage(9, 4)); err != nil {
		t.Fatalf("bmp.Encode() error = %v", err)
	}

	tests := []struct {
		name       string
		data       []byte
		autoOrient bool
		want       int
	}{
		{"png", encodePNG(t, 30, 20), true, 30},
		{"jpeg", encodeJPEG(t, 40, 10), true, 40},
		{"gif", gifBuf.Bytes(), true, 17},
		{"bmp", bmpBuf.Bytes(), true, 9},
		{"jpeg rotated by exif", withOrientation(encodeJPEG(t, 30, 20), 6), true, 20},
		{"jpeg exif ignored", withOrientation(encodeJPEG(t, 30, 20), 6), false, 30},
		{"jpeg exif no rotation", withOrientation(encodeJPEG(t, 30, 20), 1), true, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RasterWidth(bytes.NewReader(tt.data), tt.autoOrient)
			if err != nil {
				t.Fatalf("RasterWidth() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RasterWidth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRasterWidth_Errors(t *testing.T) {
	png := encodePNG(t, 10, 10)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"svg text", []byte(`<svg viewBox="0 0 400 200"/>`)},
		{"truncated png", png[:20]},
		{"pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RasterWidth(bytes.NewReader(tt.data), true)
			if !errors.Is(err, ErrSourceUnreadable) {
				t.Errorf("RasterWidth() error = %v, want ErrSourceUnreadable", err)
			}
		})
	}
}
