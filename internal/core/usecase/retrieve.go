package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
	"github.com/dkovalev/interview-copilot/internal/core/ports"
)

const (
	defaultFetchK    = 20
	defaultMMRLambda = 0.5
)

// RetrieverUseCase layers the retrieval strategies over one index handle.
// Compressed retrieval additionally needs the completion model for the
// per-candidate extraction call.
type RetrieverUseCase struct {
	index      *IndexUseCase
	compressor ports.CompletionModel

	compressionTemperature float64
}

func NewRetrieverUseCase(index *IndexUseCase, compressor ports.CompletionModel) *RetrieverUseCase {
	return &RetrieverUseCase{
		index:      index,
		compressor: compressor,
	}
}

// Basic is plain nearest-neighbor retrieval ordered by similarity descending.
func (uc *RetrieverUseCase) Basic(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	return uc.index.Search(ctx, query, k, nil)
}

// DiversityAware fetches fetchK candidates and greedily re-ranks them with
// maximum marginal relevance. lambda 1 is pure relevance, 0 pure diversity.
func (uc *RetrieverUseCase) DiversityAware(ctx context.Context, query string, k, fetchK int, lambda float64) ([]domain.Candidate, error) {
	if fetchK <= 0 {
		fetchK = defaultFetchK
	}
	if fetchK < k {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "diversity-aware retrieval",
			fmt.Errorf("fetchK (%d) must be >= k (%d)", fetchK, k))
	}
	if lambda < 0 || lambda > 1 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "diversity-aware retrieval",
			fmt.Errorf("lambda must be in [0,1], got %g", lambda))
	}

	hits, queryVector, err := uc.index.SearchWithVectors(ctx, query, fetchK, true, nil)
	if err != nil {
		return nil, err
	}

	selected := maxMarginalRelevance(queryVector, hits, k, lambda)
	return candidatesFromHits(selected), nil
}

// Compressed retrieves k candidates and asks the model to extract only the
// passages relevant to the query. One extra completion per candidate, so it
// is the expensive strategy, used when the context budget is tight.
func (uc *RetrieverUseCase) Compressed(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	candidates, err := uc.Basic(ctx, query, k)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prompt := buildCompressionPrompt(query, candidate.Story.Content)
		extracted, err := uc.compressor.Complete(ctx, prompt, uc.compressionTemperature)
		if err != nil {
			return nil, domain.WrapError(domain.ErrProvider, "compress candidate", err)
		}

		extracted = strings.TrimSpace(extracted)
		if extracted == "" || strings.Contains(extracted, noRelevantContent) {
			continue
		}

		compressed := candidate
		compressed.Story.Content = extracted
		compressed.Rank = len(out) + 1
		out = append(out, compressed)
	}
	return out, nil
}

// Compare runs basic and diversity-aware retrieval side by side and reports
// the content-set overlap. Offline analysis only, never on the hot path.
func (uc *RetrieverUseCase) Compare(ctx context.Context, query string, k int) (*domain.RetrievalComparison, error) {
	basic, err := uc.Basic(ctx, query, k)
	if err != nil {
		return nil, err
	}
	diverse, err := uc.DiversityAware(ctx, query, k, defaultFetchK, defaultMMRLambda)
	if err != nil {
		return nil, err
	}

	basicContent := make(map[string]struct{}, len(basic))
	for _, c := range basic {
		basicContent[c.Story.Content] = struct{}{}
	}
	overlap := 0
	for _, c := range diverse {
		if _, ok := basicContent[c.Story.Content]; ok {
			overlap++
		}
	}

	return &domain.RetrievalComparison{
		Basic:          summarizeMethod(basic),
		DiversityAware: summarizeMethod(diverse),
		Overlap:        overlap,
	}, nil
}

func summarizeMethod(candidates []domain.Candidate) domain.RetrievalMethodResult {
	docs := make([]domain.Story, 0, len(candidates))
	total := 0
	for _, c := range candidates {
		docs = append(docs, c.Story)
		total += len(c.Story.Content)
	}
	return domain.RetrievalMethodResult{
		Docs:        docs,
		Count:       len(docs),
		TotalLength: total,
	}
}

// maxMarginalRelevance greedily picks k hits balancing similarity to the
// query against similarity to already-selected hits.
func maxMarginalRelevance(queryVector []float32, hits []domain.ScoredStory, k int, lambda float64) []domain.ScoredStory {
	if k >= len(hits) {
		k = len(hits)
	}
	if k <= 0 {
		return nil
	}

	remaining := make([]int, 0, len(hits))
	for i := range hits {
		remaining = append(remaining, i)
	}

	selected := make([]domain.ScoredStory, 0, k)
	selectedIdx := make([]int, 0, k)

	for len(selected) < k && len(remaining) > 0 {
		bestPos := 0
		bestScore := math.Inf(-1)

		for pos, idx := range remaining {
			relevance := cosineSimilarity(queryVector, hits[idx].Vector)

			redundancy := 0.0
			for _, sel := range selectedIdx {
				sim := cosineSimilarity(hits[idx].Vector, hits[sel].Vector)
				if sim > redundancy {
					redundancy = sim
				}
			}

			score := lambda*relevance - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}

		idx := remaining[bestPos]
		selected = append(selected, hits[idx])
		selectedIdx = append(selectedIdx, idx)
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return selected
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
