package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

// Extractor pulls plain text out of a PDF upload as a single raw story.
// The worker chunks it afterwards, same as any other raw text.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, upload *domain.Upload, data io.Reader) ([]domain.Story, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", upload.Filename, err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text %s: %w", upload.Filename, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return nil, fmt.Errorf("read pdf text %s: %w", upload.Filename, err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return nil, nil
	}
	return []domain.Story{{
		Kind:    domain.KindRaw,
		Title:   upload.Filename,
		Content: text,
	}}, nil
}
