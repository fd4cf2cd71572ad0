package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"small stays", 120, 80, 120, 80},
		{"landscape", 1600, 800, 400, 200},
		{"portrait", 600, 1200, 200, 400},
		{"square", 1000, 1000, 400, 400},
		{"thin", 4000, 2, 400, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Fit(tt.w, tt.h, MaxDimension, MaxDimension)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Fit(%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestPrepareScalesAndReencodes(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 800, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			src.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var in bytes.Buffer
	if err := png.Encode(&in, src); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}

	out, err := Prepare(in.Bytes())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(out) > MaxEncodedSize {
		t.Errorf("len(out) = %d, want <= %d", len(out), MaxEncodedSize)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width != 400 || cfg.Height != 300 {
		t.Errorf("output size = %dx%d, want 400x300", cfg.Width, cfg.Height)
	}
}

func TestPrepareRejectsNonImages(t *testing.T) {
	if _, err := Prepare([]byte("not an image")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Prepare() error = %v, want ErrUnsupportedFormat", err)
	}
}

// pngHeader builds a PNG whose header declares w x h gray pixels but that
// carries no image data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestPrepareRejectsOversizedImages(t *testing.T) {
	data := pngHeader(12000, 12000)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	if cfg.Width != 12000 {
		t.Fatalf("declared width = %d", cfg.Width)
	}

	_, err = Prepare(data)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Prepare() error = %v, want ErrTooLarge", err)
	}
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Prepare() error = %v, want it to match ErrUnsupportedFormat", err)
	}
}
