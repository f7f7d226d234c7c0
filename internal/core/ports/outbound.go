package ports

import (
	"context"
	"io"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

// StoryRepository persists prepared stories. The repository is the source of
// truth for content; the vector index only holds a re-computable projection.
type StoryRepository interface {
	Create(ctx context.Context, story *domain.Story) error
	GetByID(ctx context.Context, id string) (*domain.Story, error)
	ListByStatus(ctx context.Context, status domain.StoryStatus) ([]domain.Story, error)
	UpdateStatus(ctx context.Context, id string, status domain.StoryStatus, errMessage string) error
}

// UploadRepository persists raw upload state.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) error
	GetByID(ctx context.Context, id string) (*domain.Upload, error)
	UpdateStatus(ctx context.Context, id string, status domain.StoryStatus, errMessage string) error
}

// EvaluationStore appends and reads batch evaluation runs.
type EvaluationStore interface {
	AppendRun(ctx context.Context, run domain.EvaluationRun) error
	ListRuns(ctx context.Context, limit int) ([]domain.EvaluationRun, error)
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries ingestion events between the API and the worker.
type MessageQueue interface {
	PublishUploadIngested(ctx context.Context, uploadID string) error
	SubscribeUploadIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishStoryQueued(ctx context.Context, storyID string) error
	SubscribeStoryQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// StoryExtractor turns one uploaded file into prepared stories.
type StoryExtractor interface {
	Extract(ctx context.Context, upload *domain.Upload, r io.Reader) ([]domain.Story, error)
}

// Embedder builds vectors for story content and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CompletionModel is the provider-agnostic language model capability. The
// judgment engine uses temperature 0 for deterministic evaluation and a
// mildly stochastic temperature for answer synthesis.
type CompletionModel interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// VectorStore is the opaque nearest-neighbor backend behind the index
// usecase. Scores are cosine similarities, higher-is-more-similar.
type VectorStore interface {
	EnsureCollection(ctx context.Context, vectorSize int) error
	CollectionExists(ctx context.Context) (bool, error)
	Upsert(ctx context.Context, points []domain.IndexPoint) error
	Search(ctx context.Context, queryVector []float32, limit int, withVectors bool, scoreThreshold *float64) ([]domain.ScoredStory, error)
	Count(ctx context.Context) (int, error)
	Collection() string
}

// Chunker splits long raw uploads into indexable pieces.
type Chunker interface {
	Split(text string) []string
}
