package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
	"github.com/dkovalev/interview-copilot/internal/core/ports"
)

// pointNamespace seeds the deterministic point IDs. Upserting the same
// content always hits the same point, which makes Create idempotent.
var pointNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// IndexUseCase wraps the embedder and the nearest-neighbor backend into the
// create/load/add/search/stats contract. Safe for concurrent readers; writers
// are expected to be a single worker.
type IndexUseCase struct {
	embedder   ports.Embedder
	store      ports.VectorStore
	embedModel string

	mu          sync.RWMutex
	initialized bool
}

func NewIndexUseCase(embedder ports.Embedder, store ports.VectorStore, embedModel string) *IndexUseCase {
	return &IndexUseCase{
		embedder:   embedder,
		store:      store,
		embedModel: embedModel,
	}
}

// Create deduplicates the batch by content hash (first occurrence wins,
// order preserved), embeds the survivors and persists them. Re-running
// Create with the same documents does not grow the collection.
func (uc *IndexUseCase) Create(ctx context.Context, stories []domain.Story) error {
	unique := domain.DeduplicateStories(stories)

	points, err := uc.buildPoints(ctx, unique)
	if err != nil {
		return err
	}

	vectorSize := 0
	if len(points) > 0 {
		vectorSize = len(points[0].Vector)
	}
	if err := uc.store.EnsureCollection(ctx, vectorSize); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if len(points) > 0 {
		if err := uc.store.Upsert(ctx, points); err != nil {
			return fmt.Errorf("upsert points: %w", err)
		}
	}

	uc.markInitialized()
	return nil
}

// Load reopens a previously persisted index.
func (uc *IndexUseCase) Load(ctx context.Context) error {
	exists, err := uc.store.CollectionExists(ctx)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		return domain.WrapError(domain.ErrIndexNotFound, "load index",
			fmt.Errorf("collection %q has no persisted state", uc.store.Collection()))
	}
	uc.markInitialized()
	return nil
}

// Add appends a batch. The batch is deduplicated against its own content
// only; duplicates already present in the index are tolerated (and, with
// content-derived point IDs, collapse onto the existing entry).
func (uc *IndexUseCase) Add(ctx context.Context, stories []domain.Story) error {
	if !uc.isInitialized() {
		return domain.WrapError(domain.ErrNotInitialized, "add documents",
			errors.New("create or load the index first"))
	}

	unique := domain.DeduplicateStories(stories)
	points, err := uc.buildPoints(ctx, unique)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	if err := uc.store.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Search returns up to k nearest stories. When scoreThreshold is non-nil it
// filters on the backend similarity score; with the cosine backend used here
// higher means more similar, so the threshold is a lower bound. Other
// backends report distances with the opposite direction - the threshold is
// passed through, not translated.
func (uc *IndexUseCase) Search(ctx context.Context, query string, k int, scoreThreshold *float64) ([]domain.Candidate, error) {
	hits, _, err := uc.SearchWithVectors(ctx, query, k, false, scoreThreshold)
	if err != nil {
		return nil, err
	}
	return candidatesFromHits(hits), nil
}

// SearchWithVectors additionally returns the query vector and, when
// withVectors is set, the stored vectors of each hit. Diversity-aware
// re-ranking needs both.
func (uc *IndexUseCase) SearchWithVectors(ctx context.Context, query string, k int, withVectors bool, scoreThreshold *float64) ([]domain.ScoredStory, []float32, error) {
	if !uc.isInitialized() {
		return nil, nil, domain.WrapError(domain.ErrNotInitialized, "search",
			errors.New("create or load the index first"))
	}
	if k <= 0 {
		return nil, nil, domain.WrapError(domain.ErrInvalidParameter, "search",
			fmt.Errorf("k must be positive, got %d", k))
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrEmbeddingService, "embed query", err)
	}

	hits, err := uc.store.Search(ctx, queryVector, k, withVectors, scoreThreshold)
	if err != nil {
		return nil, nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, queryVector, nil
}

// Basic satisfies ports.CandidateRetriever for the judgment engine.
func (uc *IndexUseCase) Basic(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	return uc.Search(ctx, query, k, nil)
}

func (uc *IndexUseCase) Stats(ctx context.Context) (*domain.IndexStats, error) {
	if !uc.isInitialized() {
		return nil, domain.WrapError(domain.ErrNotInitialized, "stats",
			errors.New("create or load the index first"))
	}
	count, err := uc.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count points: %w", err)
	}
	return &domain.IndexStats{
		CollectionName: uc.store.Collection(),
		DocumentCount:  count,
		EmbeddingModel: uc.embedModel,
	}, nil
}

func (uc *IndexUseCase) buildPoints(ctx context.Context, stories []domain.Story) ([]domain.IndexPoint, error) {
	if len(stories) == 0 {
		return nil, nil
	}

	texts := make([]string, len(stories))
	for i, s := range stories {
		texts[i] = s.Content
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "embed documents", err)
	}
	if len(vectors) != len(stories) {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "embed documents",
			fmt.Errorf("expected %d vectors, got %d", len(stories), len(vectors)))
	}

	points := make([]domain.IndexPoint, len(stories))
	for i, s := range stories {
		points[i] = domain.IndexPoint{
			ID:     PointID(s),
			Vector: vectors[i],
			Story:  s,
		}
	}
	return points, nil
}

// PointID derives a stable UUID from the story content hash.
func PointID(s domain.Story) string {
	return uuid.NewSHA1(pointNamespace, []byte(s.ContentHash())).String()
}

func candidatesFromHits(hits []domain.ScoredStory) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(hits))
	for i, hit := range hits {
		out = append(out, domain.Candidate{
			Story: hit.Story,
			Rank:  i + 1,
			Score: hit.Score,
		})
	}
	return out
}

func (uc *IndexUseCase) markInitialized() {
	uc.mu.Lock()
	uc.initialized = true
	uc.mu.Unlock()
}

func (uc *IndexUseCase) isInitialized() bool {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.initialized
}
