package ports

import (
	"context"
	"io"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the retrieve-then-decide
// pipeline.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, opts AskOptions) (*domain.Decision, error)
}

// AskOptions override per-question judgment knobs; zero values fall back to
// configured defaults.
type AskOptions struct {
	TopK              int
	MinRelevanceScore int
}

// StoryIngestor is the inbound contract for story and file ingestion.
type StoryIngestor interface {
	CreateStories(ctx context.Context, stories []domain.Story) ([]domain.Story, error)
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Upload, error)
}

// CandidateRetriever fetches ranked candidates for a question.
type CandidateRetriever interface {
	Basic(ctx context.Context, query string, k int) ([]domain.Candidate, error)
}

// RetrievalComparer runs the offline strategy comparison.
type RetrievalComparer interface {
	Compare(ctx context.Context, query string, k int) (*domain.RetrievalComparison, error)
}

// UploadProcessor is the inbound contract for asynchronous indexing work.
type UploadProcessor interface {
	ProcessUpload(ctx context.Context, uploadID string) error
	ProcessStory(ctx context.Context, storyID string) error
}
