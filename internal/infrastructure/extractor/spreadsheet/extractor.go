package spreadsheet

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

// Extractor reads xlsx uploads where the first sheet holds one question per
// row. Expected columns: question, answer, optional comma-separated tags.
// A header row naming the columns is skipped when present.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, upload *domain.Upload, data io.Reader) ([]domain.Story, error) {
	f, err := excelize.OpenReader(data)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", upload.Filename, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", upload.Filename)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	var out []domain.Story
	for i, row := range rows {
		if i == 0 && isHeaderRow(row) {
			continue
		}
		if len(row) < 2 {
			continue
		}
		question := strings.TrimSpace(row[0])
		answer := strings.TrimSpace(row[1])
		if question == "" || answer == "" {
			continue
		}
		var tags []string
		if len(row) > 2 {
			tags = parseTags(row[2])
		}
		out = append(out, domain.NewQAPair(question, answer, tags))
	}
	return out, nil
}

func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "question" || first == "вопрос"
}

func parseTags(cell string) []string {
	var out []string
	for _, tag := range strings.Split(cell, ",") {
		if t := strings.TrimSpace(tag); t != "" {
			out = append(out, t)
		}
	}
	return out
}
