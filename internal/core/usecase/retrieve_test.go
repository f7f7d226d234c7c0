package usecase

import (
	"context"
	"testing"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

func newLoadedIndex(t *testing.T, store *vectorStoreFake) *IndexUseCase {
	t.Helper()
	store.exists = true
	uc := NewIndexUseCase(&embedderFake{}, store, "m")
	if err := uc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return uc
}

func TestDiversityAwareRejectsFetchKBelowK(t *testing.T) {
	retriever := NewRetrieverUseCase(newLoadedIndex(t, newVectorStoreFake()), &completionFake{})
	_, err := retriever.DiversityAware(context.Background(), "q", 5, 3, 0.5)
	if !domain.IsKind(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected invalid-parameter error, got %v", err)
	}
}

func TestDiversityAwareRejectsLambdaOutOfRange(t *testing.T) {
	retriever := NewRetrieverUseCase(newLoadedIndex(t, newVectorStoreFake()), &completionFake{})
	_, err := retriever.DiversityAware(context.Background(), "q", 2, 4, 1.5)
	if !domain.IsKind(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected invalid-parameter error, got %v", err)
	}
}

func TestDiversityAwarePureRelevanceKeepsSearchOrder(t *testing.T) {
	store := newVectorStoreFake()
	// Two near-duplicates of the query direction plus one orthogonal doc.
	store.hits = []domain.ScoredStory{
		{Story: storyWith("dup-a"), Score: 0.99, Vector: []float32{1, 1}},
		{Story: storyWith("dup-b"), Score: 0.98, Vector: []float32{1, 0.8}},
		{Story: storyWith("other"), Score: 0.20, Vector: []float32{0, 1}},
	}
	retriever := NewRetrieverUseCase(newLoadedIndex(t, store), &completionFake{})

	out, err := retriever.DiversityAware(context.Background(), "q", 2, 3, 1.0)
	if err != nil {
		t.Fatalf("DiversityAware() error = %v", err)
	}
	if out[0].Story.Content != "dup-a" || out[1].Story.Content != "dup-b" {
		t.Fatalf("lambda=1 must be pure relevance, got %q then %q",
			out[0].Story.Content, out[1].Story.Content)
	}
}

func TestDiversityAwarePureDiversityAvoidsRedundancy(t *testing.T) {
	store := newVectorStoreFake()
	store.hits = []domain.ScoredStory{
		{Story: storyWith("dup-a"), Score: 0.99, Vector: []float32{1, 1}},
		{Story: storyWith("dup-b"), Score: 0.98, Vector: []float32{1, 0.8}},
		{Story: storyWith("other"), Score: 0.20, Vector: []float32{0, 1}},
	}
	retriever := NewRetrieverUseCase(newLoadedIndex(t, store), &completionFake{})

	out, err := retriever.DiversityAware(context.Background(), "q", 2, 3, 0.0)
	if err != nil {
		t.Fatalf("DiversityAware() error = %v", err)
	}
	if out[0].Story.Content != "dup-a" || out[1].Story.Content != "other" {
		t.Fatalf("lambda=0 must pick the orthogonal doc second, got %q then %q",
			out[0].Story.Content, out[1].Story.Content)
	}
}

func TestCompressedReturnsExtractedText(t *testing.T) {
	store := newVectorStoreFake()
	store.hits = []domain.ScoredStory{
		{Story: storyWith("long story about query optimization and lunch"), Score: 0.9},
		{Story: storyWith("unrelated story"), Score: 0.5},
	}
	compressor := &completionFake{responses: []string{
		"query optimization",
		"NO_RELEVANT_CONTENT",
	}}
	retriever := NewRetrieverUseCase(newLoadedIndex(t, store), compressor)

	out, err := retriever.Compressed(context.Background(), "query optimization", 2)
	if err != nil {
		t.Fatalf("Compressed() error = %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected the irrelevant candidate dropped, got %d", len(out))
	}
	if out[0].Story.Content != "query optimization" {
		t.Fatalf("expected compressed text, got %q", out[0].Story.Content)
	}
	if out[0].Rank != 1 {
		t.Fatalf("ranks must be recomputed after compression, got %d", out[0].Rank)
	}
}

func TestCompareReportsOverlap(t *testing.T) {
	store := newVectorStoreFake()
	store.hits = []domain.ScoredStory{
		{Story: storyWith("alpha"), Score: 0.9, Vector: []float32{1, 0}},
		{Story: storyWith("beta"), Score: 0.8, Vector: []float32{0.9, 0.1}},
	}
	retriever := NewRetrieverUseCase(newLoadedIndex(t, store), &completionFake{})

	cmp, err := retriever.Compare(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if cmp.Basic.Count != 2 || cmp.DiversityAware.Count != 2 {
		t.Fatalf("unexpected counts %+v", cmp)
	}
	if cmp.Overlap != 2 {
		t.Fatalf("identical result sets must fully overlap, got %d", cmp.Overlap)
	}
	if cmp.Basic.TotalLength != len("alpha")+len("beta") {
		t.Fatalf("unexpected total length %d", cmp.Basic.TotalLength)
	}
}

func TestMaxMarginalRelevanceHandlesSmallPools(t *testing.T) {
	hits := []domain.ScoredStory{{Story: storyWith("only"), Vector: []float32{1, 0}}}
	out := maxMarginalRelevance([]float32{1, 0}, hits, 5, 0.5)
	if len(out) != 1 {
		t.Fatalf("expected pool-limited selection, got %d", len(out))
	}
	if out := maxMarginalRelevance([]float32{1, 0}, nil, 3, 0.5); out != nil {
		t.Fatalf("expected nil for empty pool, got %v", out)
	}
}
