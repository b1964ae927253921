package ocr

import (
	"bytes"
	"image/png"
	"math"
	"testing"
)

func TestPreprocessProducesGrayscalePNG(t *testing.T) {
	out, err := Preprocess(samplePNG(t), PreprocessOptions{Contrast: 2, Sharpen: 1})
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("bounds = %v", b)
	}
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r != g || g != bl {
				t.Fatalf("pixel (%d,%d) not gray: %d %d %d", x, y, r, g, bl)
			}
		}
	}
}

func TestContrastPercent(t *testing.T) {
	cases := []struct {
		factor float64
		want   float64
	}{
		{0, 0},
		{1, 0},
		{2, 50},
		{4, 75},
		{5, 80},
		{0.5, -50},
	}
	for _, c := range cases {
		if got := contrastPercent(c.factor); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("contrastPercent(%v) = %v, want %v", c.factor, got, c.want)
		}
	}
}

func TestPreprocessContrastDoesNotBinarize(t *testing.T) {
	out, err := Preprocess(samplePNG(t), PreprocessOptions{Contrast: 2})
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	levels := map[uint32]struct{}{}
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			r, _, _, _ := img.At(x, y).RGBA()
			levels[r] = struct{}{}
		}
	}
	if len(levels) <= 2 {
		t.Fatalf("contrast 2 collapsed the image to %d levels", len(levels))
	}
}
