package pipeline

import (
	"context"
	"fmt"

	"dlscan/internal/ocr"
)

// TextFromInput returns the raw text for a one-off run. "text" takes the
// input literally; "file" runs it through the OCR boundary.
func TextFromInput(ctx context.Context, extractor *ocr.Extractor, inputType, input string) (string, error) {
	switch inputType {
	case "text":
		return input, nil
	case "file":
		if extractor == nil {
			return "", fmt.Errorf("no extractor configured")
		}
		return extractor.ExtractFile(ctx, input)
	default:
		return "", fmt.Errorf("unsupported input type: %s", inputType)
	}
}
