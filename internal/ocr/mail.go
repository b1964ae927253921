package ocr

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"golang.org/x/net/html"
)

var contentTypeExt = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/bmp":       ".bmp",
	"image/tiff":      ".tiff",
	"application/pdf": ".pdf",
}

// extractMessage recognizes the document attached to a raw email. The first
// attachment or inline part that yields text wins; without one the message
// body is used.
func (e *Extractor) extractMessage(ctx context.Context, name string, raw []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: parse message: %v", ErrUnsupportedFormat, err)
	}

	parts := append([]*enmime.Part{}, env.Attachments...)
	parts = append(parts, env.Inlines...)
	for _, part := range parts {
		partName, ok := documentPartName(part)
		if !ok {
			continue
		}
		text, err := e.ExtractBytes(ctx, partName, part.Content)
		if err != nil {
			e.logger.Warn("message part skipped", "message", name, "part", partName, "error", err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}

	if env.HTML != "" {
		if text, err := HTMLText([]byte(env.HTML)); err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return env.Text, nil
}

func documentPartName(part *enmime.Part) (string, bool) {
	name := strings.TrimSpace(part.FileName)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".pdf", ".txt", ".html", ".htm":
		return name, true
	}
	if ext, ok := contentTypeExt[strings.ToLower(part.ContentType)]; ok {
		if name == "" {
			name = "attachment"
		}
		return name + ext, true
	}
	return "", false
}

// HTMLText flattens an HTML page to text, keeping table cells and block
// elements apart so neighbouring values do not run together.
func HTMLText(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	doc.Find("script,style,head").Remove()
	doc.Find("td,th").Each(func(_ int, s *goquery.Selection) {
		s.AppendNodes(&html.Node{Type: html.TextNode, Data: " "})
	})
	doc.Find("br,p,div,li,tr,h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		s.AfterNodes(&html.Node{Type: html.TextNode, Data: "\n"})
	})

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}
