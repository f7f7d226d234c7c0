package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

// Extractor turns plain text files into stories. Files using the
// "Q:" / "A:" convention become one qa_pair story per pair; anything else
// becomes a single raw story that the worker chunks later.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, upload *domain.Upload, data io.Reader) ([]domain.Story, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("not valid utf-8: %s", upload.Filename)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, nil
	}

	if pairs := parseQAPairs(text); len(pairs) > 0 {
		return pairs, nil
	}
	return []domain.Story{{
		Kind:    domain.KindRaw,
		Title:   upload.Filename,
		Content: text,
	}}, nil
}

func parseQAPairs(text string) []domain.Story {
	var out []domain.Story
	var question string
	var answer strings.Builder

	flush := func() {
		q := strings.TrimSpace(question)
		a := strings.TrimSpace(answer.String())
		if q != "" && a != "" {
			out = append(out, domain.NewQAPair(q, a, nil))
		}
		question = ""
		answer.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Q:"):
			flush()
			question = strings.TrimSpace(strings.TrimPrefix(trimmed, "Q:"))
		case strings.HasPrefix(trimmed, "A:"):
			answer.WriteString(strings.TrimSpace(strings.TrimPrefix(trimmed, "A:")))
		case question != "" && answer.Len() > 0 && trimmed != "":
			answer.WriteString("\n")
			answer.WriteString(trimmed)
		}
	}
	flush()
	return out
}
