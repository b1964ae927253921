// Package ocr is the boundary to the text recognition engine. It turns an
// uploaded document into the raw text blob the resolution pipeline consumes.
package ocr

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNoTextLayer       = errors.New("pdf has no text layer")
)

// Input is a single preprocessed image submitted for recognition.
type Input struct {
	// Image is a PNG-encoded grayscale image.
	Image []byte
	// Languages are tesseract language codes, e.g. "eng".
	Languages []string
	// PageSegMode is the recognition mode hint (tesseract --psm). Zero leaves
	// the engine default.
	PageSegMode int
}

// Engine converts an image to a best-effort text blob. Empty or garbled
// output is not an error.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (string, error)
}
