package plaintext

import (
	"context"
	"strings"
	"testing"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

func TestExtractParsesQAPairs(t *testing.T) {
	text := `Q: Tell me about a time you failed
A: I shipped a broken migration once.
It took the service down for an hour.

Q: Why do you want this job
A: The scale problems are interesting.`

	extractor := New()
	stories, err := extractor.Extract(context.Background(),
		&domain.Upload{Filename: "prep.txt"}, strings.NewReader(text))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(stories) != 2 {
		t.Fatalf("expected 2 qa pairs, got %d", len(stories))
	}
	if stories[0].Kind != domain.KindQAPair {
		t.Fatalf("expected qa_pair kind, got %s", stories[0].Kind)
	}
	if !strings.Contains(stories[0].Content, "broken migration") ||
		!strings.Contains(stories[0].Content, "service down") {
		t.Fatalf("multi-line answer not kept: %q", stories[0].Content)
	}
}

func TestExtractFallsBackToRawStory(t *testing.T) {
	extractor := New()
	stories, err := extractor.Extract(context.Background(),
		&domain.Upload{Filename: "notes.txt"}, strings.NewReader("free-form interview notes"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(stories) != 1 || stories[0].Kind != domain.KindRaw {
		t.Fatalf("expected one raw story, got %+v", stories)
	}
	if stories[0].Title != "notes.txt" {
		t.Fatalf("expected filename title, got %q", stories[0].Title)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	extractor := New()
	_, err := extractor.Extract(context.Background(),
		&domain.Upload{Filename: "blob.bin"}, strings.NewReader("\xff\xfe\x00"))
	if err == nil {
		t.Fatalf("expected error for non-utf8 input")
	}
}

func TestExtractEmptyFileYieldsNothing(t *testing.T) {
	extractor := New()
	stories, err := extractor.Extract(context.Background(),
		&domain.Upload{Filename: "empty.txt"}, strings.NewReader("   \n  "))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(stories) != 0 {
		t.Fatalf("expected no stories, got %d", len(stories))
	}
}
