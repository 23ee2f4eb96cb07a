// Package imaging prepares generated images for inline embedding: resize to
// the playable dimension budget, re-encode in the cheapest format the pixels
// allow, and wrap as a base64 data URI.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
)

const (
	// DefaultMaxDimension bounds the longer edge of an embedded asset.
	DefaultMaxDimension = 512

	jpegQuality = 85
)

// ErrEmptyImage indicates the input had no bytes to decode.
var ErrEmptyImage = errors.New("imaging: empty image data")

// Processed is an optimized image ready for embedding.
type Processed struct {
	Data   []byte
	Width  int
	Height int
	// HasAlpha reports whether any pixel was non-opaque, which forces PNG.
	HasAlpha bool
}

// Optimize decodes, downscales and re-encodes an image so its longer edge is
// at most maxDimension. Images with transparency stay PNG; fully opaque
// images re-encode as JPEG for the smaller payload.
func Optimize(data []byte, maxDimension int) (Processed, error) {
	if len(data) == 0 {
		return Processed{}, ErrEmptyImage
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Processed{}, fmt.Errorf("imaging: decode: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if longer := max(width, height); longer > maxDimension {
		ratio := float64(maxDimension) / float64(longer)
		width = int(float64(width) * ratio)
		height = int(float64(height) * ratio)
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	hasAlpha := hasTransparency(src)

	var buf bytes.Buffer
	if hasAlpha {
		if err := png.Encode(&buf, src); err != nil {
			return Processed{}, fmt.Errorf("imaging: encode png: %w", err)
		}
	} else {
		if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return Processed{}, fmt.Errorf("imaging: encode jpeg: %w", err)
		}
	}

	return Processed{Data: buf.Bytes(), Width: width, Height: height, HasAlpha: hasAlpha}, nil
}

// EncodeDataURI wraps image bytes as a base64 data URI, sniffing the MIME
// type from the magic bytes. Unknown payloads default to image/png.
func EncodeDataURI(data []byte) string {
	return "data:" + sniffMIME(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI reverses EncodeDataURI, returning the raw bytes.
func DecodeDataURI(uri string) ([]byte, error) {
	_, encoded, ok := strings.Cut(uri, ";base64,")
	if !ok {
		return nil, errors.New("imaging: not a base64 data uri")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("imaging: decode data uri: %w", err)
	}
	return data, nil
}

func sniffMIME(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case bytes.HasPrefix(data, []byte{0xff, 0xd8}):
		return "image/jpeg"
	default:
		return "image/png"
	}
}

// hasTransparency scans for any non-opaque pixel. Opaque image types short
// circuit without touching pixels.
func hasTransparency(img image.Image) bool {
	if opaque, ok := img.(interface{ Opaque() bool }); ok {
		return !opaque.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
