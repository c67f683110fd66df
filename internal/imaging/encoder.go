// Package imaging re-encodes uploaded images down to a configured byte budget.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"

	_ "image/png" // register PNG decoder

	xdraw "golang.org/x/image/draw"
)

// Quality ladder for the compression search. Encoding starts at startQuality
// and steps down until the result fits the budget or the quality would drop
// to minQuality or below.
const (
	startQuality = 85
	qualityStep  = 5
	minQuality   = 40
)

// OutputExt is the canonical extension for re-encoded images.
const OutputExt = "jpg"

// ErrUndecodable is returned when the payload cannot be decoded as an image.
// Callers are expected to fall back to storing the raw bytes unmodified.
var ErrUndecodable = errors.New("payload is not a decodable image")

// reencodable lists the filename extensions eligible for re-encoding.
// Everything else is passed through as opaque bytes.
var reencodable = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

// CanReencode reports whether an upload with the given filename extension
// should go through the encoder.
func CanReencode(ext string) bool {
	return reencodable[strings.ToLower(ext)]
}

// Encoder compresses images to fit a byte budget by walking a fixed JPEG
// quality ladder. It is stateless and safe for concurrent use.
type Encoder struct {
	// MaxBytes is the byte budget. Best effort: if even the lowest quality
	// on the ladder produces a larger result, that result is returned anyway.
	MaxBytes int
	// MaxDimension caps width/height before encoding. 0 disables downscaling.
	MaxDimension int
}

// New creates an Encoder with the given byte budget and dimension cap.
func New(maxBytes, maxDimension int) *Encoder {
	return &Encoder{MaxBytes: maxBytes, MaxDimension: maxDimension}
}

// Encode decodes raw, flattens any alpha channel or palette to opaque RGB,
// and re-encodes as JPEG at descending quality levels (85, 80, ... 45) until
// the output fits MaxBytes. If no level fits, the last attempt is returned:
// the budget is a documented best-effort target, not a guarantee.
//
// Returns ErrUndecodable when raw is not a decodable image; the caller must
// treat that as "unsupported format", not as a failed request.
func (e *Encoder) Encode(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	img = flatten(img)
	if e.MaxDimension > 0 {
		img = downscale(img, e.MaxDimension)
	}

	var buf bytes.Buffer
	for q := startQuality; q > minQuality; q -= qualityStep {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode jpeg at quality %d: %w", q, err)
		}
		if buf.Len() <= e.MaxBytes {
			break
		}
	}
	return buf.Bytes(), nil
}

// flatten converts images with an alpha channel or indexed palette to opaque
// RGB. Alpha is discarded outright, not composited against a background:
// color channels keep their original values. Transparent regions of PNGs
// therefore come out in whatever color the pixels carried underneath.
func flatten(img image.Image) image.Image {
	switch src := img.(type) {
	case *image.NRGBA:
		b := src.Bounds()
		dst := image.NewRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			si := src.PixOffset(b.Min.X, y)
			di := dst.PixOffset(b.Min.X, y)
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.Pix[di+0] = src.Pix[si+0]
				dst.Pix[di+1] = src.Pix[si+1]
				dst.Pix[di+2] = src.Pix[si+2]
				dst.Pix[di+3] = 0xff
				si += 4
				di += 4
			}
		}
		return dst
	case *image.Paletted:
		return toOpaqueRGBA(src)
	default:
		if opq, ok := img.(interface{ Opaque() bool }); ok && opq.Opaque() {
			return img
		}
		return toOpaqueRGBA(img)
	}
}

// toOpaqueRGBA copies img pixel by pixel into an RGBA image with full alpha.
func toOpaqueRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return dst
}

// downscale resizes img so neither dimension exceeds maxDim, preserving
// aspect ratio. Returns img unchanged when already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = h * maxDim / w
	} else {
		newW = w * maxDim / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
