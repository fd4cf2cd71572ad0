// Package imaging prepares uploaded pictures for storage: it bounds their
// dimensions and re-encodes them as JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds both width and height of a prepared image.
	MaxDimension = 400
	// Quality is the JPEG quality used first.
	Quality = 70
	// FallbackQuality is used when the first encoding exceeds MaxEncodedSize.
	FallbackQuality = 50
	// MaxEncodedSize is the size above which FallbackQuality is applied.
	MaxEncodedSize = 500 * 1024
	// MaxPixels bounds the declared size of an input image before decoding.
	MaxPixels = 40_000_000
)

// ContentType is the MIME type of every prepared image.
const ContentType = "image/jpeg"

// ErrUnsupportedFormat is returned for input that is not a decodable image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrTooLarge is returned for images whose declared size exceeds MaxPixels.
var ErrTooLarge = fmt.Errorf("%w: image exceeds %d pixels", ErrUnsupportedFormat, MaxPixels)

// Prepare decodes data, scales it down to fit MaxDimension while keeping the
// aspect ratio, and encodes it as JPEG.
func Prepare(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, ErrTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := Resize(src, MaxDimension, MaxDimension)

	out, err := encode(dst, Quality)
	if err != nil {
		return nil, err
	}
	if len(out) > MaxEncodedSize {
		return encode(dst, FallbackQuality)
	}
	return out, nil
}

// Resize scales src to fit within maxW x maxH. Smaller images are only
// flattened onto a white background, never enlarged.
func Resize(src image.Image, maxW, maxH int) *image.RGBA {
	w, h := Fit(src.Bounds().Dx(), src.Bounds().Dy(), maxW, maxH)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// Fit returns the largest size with the aspect ratio of w x h that fits in
// maxW x maxH, or w x h itself when it already fits.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	if w*maxH > h*maxW {
		return maxW, max(1, h*maxW/w)
	}
	return max(1, w*maxH/h), maxH
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
