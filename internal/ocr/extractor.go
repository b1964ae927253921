package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Languages   []string
	PageSegMode int
	Preprocess  PreprocessOptions
}

// Extractor picks a strategy from the file extension. Plain text is passed
// through, HTML is flattened, emails are unpacked, PDFs use their text layer
// and everything else is treated as an image.
type Extractor struct {
	engine Engine
	cfg    Config
	logger *slog.Logger
}

func NewExtractor(engine Engine, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	return &Extractor{engine: engine, cfg: cfg, logger: logger}
}

func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return e.ExtractBytes(ctx, filepath.Base(path), data)
}

func (e *Extractor) ExtractBytes(ctx context.Context, name string, data []byte) (string, error) {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ".txt":
		return string(data), nil
	case ".html", ".htm":
		return HTMLText(data)
	case ".eml":
		return e.extractMessage(ctx, name, data)
	case ".pdf":
		text, err := PDFText(data)
		if err != nil {
			e.logger.Warn("pdf text extraction failed", "name", name, "error", err)
			return "", err
		}
		e.logger.Debug("pdf text extracted", "name", name, "bytes", len(text), "duration_ms", time.Since(start).Milliseconds())
		return text, nil
	}

	if e.engine == nil {
		return "", fmt.Errorf("no ocr engine configured for %s", name)
	}
	img, err := Preprocess(data, e.cfg.Preprocess)
	if err != nil {
		return "", err
	}
	text, err := e.engine.Recognize(ctx, Input{
		Image:       img,
		Languages:   e.cfg.Languages,
		PageSegMode: e.cfg.PageSegMode,
	})
	if err != nil {
		e.logger.Error("ocr failed", "engine", e.engine.Name(), "name", name, "error", err)
		return "", fmt.Errorf("%s ocr: %w", e.engine.Name(), err)
	}
	e.logger.Debug("ocr ok", "engine", e.engine.Name(), "name", name, "bytes", len(text), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

var supportedExts = map[string]struct{}{
	".txt": {}, ".html": {}, ".htm": {}, ".eml": {}, ".pdf": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".tif": {}, ".tiff": {},
}

// Supported reports whether name has an extension the extractor handles.
func Supported(name string) bool {
	_, ok := supportedExts[strings.ToLower(filepath.Ext(name))]
	return ok
}
