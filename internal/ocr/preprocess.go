package ocr

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

type PreprocessOptions struct {
	// Contrast is a multiplicative factor; 1 leaves the image unchanged.
	Contrast float64
	// Sharpen is the gaussian sigma used for unsharp masking; 0 disables it.
	Sharpen float64
}

// Preprocess decodes an image and applies grayscale, sharpen and contrast in
// that order, returning PNG bytes.
func Preprocess(data []byte, opts PreprocessOptions) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", ErrUnsupportedFormat, err)
	}

	gray := imaging.Grayscale(img)
	if opts.Sharpen > 0 {
		gray = imaging.Sharpen(gray, opts.Sharpen)
	}
	if pct := contrastPercent(opts.Contrast); pct != 0 {
		gray = imaging.AdjustContrast(gray, pct)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// contrastPercent maps a linear contrast factor (2 doubles the distance from
// mid gray) onto imaging's -100..100 scale. imaging stretches by 1/(2-v) for
// v=(100+pct)/100 above 1 and by v below 1, so the factor is matched exactly
// around mid gray. PIL-style enhancers pivot on the image mean instead, so
// results are close but not identical.
func contrastPercent(factor float64) float64 {
	switch {
	case factor <= 0:
		return 0
	case factor >= 1:
		return 100 * (1 - 1/factor)
	default:
		return (factor - 1) * 100
	}
}
