package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
	"github.com/dkovalev/interview-copilot/internal/core/ports"
)

// uncertaintyPhrases is the fixed list checked case-insensitively against
// answers.
var uncertaintyPhrases = []string{
	"i don't know",
	"not sure",
	"cannot answer",
	"don't have enough information",
}

// QAResult is one answered question as seen by the evaluator.
type QAResult struct {
	Question     string
	Answer       string
	RetrievedIDs []string
	Contexts     []string
}

// EvaluateRetrieval scores one retrieval against the ground-truth relevant
// set. Precision divides by k (a short retrieval list is penalized), recall
// by |relevant|, MRR uses the 1-based rank of the first relevant hit within
// the first k.
func EvaluateRetrieval(retrievedIDs, relevantIDs []string, k int) domain.RetrievalMetrics {
	if k <= 0 {
		return domain.RetrievalMetrics{NumRelevant: len(relevantIDs)}
	}
	if len(retrievedIDs) > k {
		retrievedIDs = retrievedIDs[:k]
	}

	relevant := make(map[string]struct{}, len(relevantIDs))
	for _, id := range relevantIDs {
		relevant[id] = struct{}{}
	}

	hits := 0
	mrr := 0.0
	for i, id := range retrievedIDs {
		if _, ok := relevant[id]; ok {
			hits++
			if mrr == 0 {
				mrr = 1.0 / float64(i+1)
			}
		}
	}

	precision := float64(hits) / float64(k)
	recall := 0.0
	if len(relevantIDs) > 0 {
		recall = float64(hits) / float64(len(relevantIDs))
	}
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return domain.RetrievalMetrics{
		PrecisionAtK: precision,
		RecallAtK:    recall,
		F1:           f1,
		MRR:          mrr,
		NumRetrieved: len(retrievedIDs),
		NumRelevant:  len(relevantIDs),
	}
}

// EvaluateAnswerQuality computes the ground-truth-free heuristics, plus
// Jaccard word overlap against the ground truth when one is supplied.
func EvaluateAnswerQuality(answer string, contexts []string, groundTruth string) domain.AnswerMetrics {
	metrics := domain.AnswerMetrics{
		AnswerLength: len(answer),
		AnswerWords:  len(strings.Fields(answer)),
	}

	lower := strings.ToLower(answer)
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			metrics.ExpressesUncertainty = true
			break
		}
	}

	if len(contexts) > 0 {
		answerWords := wordSet(answer)
		contextWords := wordSet(strings.Join(contexts, " "))
		if len(answerWords) > 0 {
			overlap := 0
			for w := range answerWords {
				if _, ok := contextWords[w]; ok {
					overlap++
				}
			}
			metrics.ContextOverlapRatio = float64(overlap) / float64(len(answerWords))
		}
	}

	if groundTruth != "" {
		metrics.GroundTruthSimilarity = jaccardSimilarity(answer, groundTruth)
		metrics.HasGroundTruth = true
	}

	return metrics
}

func jaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// EvaluatorUseCase aggregates per-question metrics into timestamped runs and
// keeps an append-only in-memory history; the store persists each run.
type EvaluatorUseCase struct {
	store ports.EvaluationStore
	k     int

	mu      sync.Mutex
	history []domain.EvaluationRun

	now func() time.Time
}

func NewEvaluatorUseCase(store ports.EvaluationStore, k int) *EvaluatorUseCase {
	if k <= 0 {
		k = 4
	}
	return &EvaluatorUseCase{
		store: store,
		k:     k,
		now:   time.Now,
	}
}

// EvaluateBatch pairs results with the dataset positionally, the way the
// batch was issued.
func (uc *EvaluatorUseCase) EvaluateBatch(ctx context.Context, results []QAResult, dataset []domain.GroundTruth) (*domain.EvaluationRun, error) {
	run := domain.EvaluationRun{
		Timestamp:        uc.now().UTC(),
		NumQuestions:     len(results),
		RetrievalMetrics: make([]domain.RetrievalMetrics, 0, len(results)),
		AnswerMetrics:    make([]domain.AnswerMetrics, 0, len(results)),
	}

	for i, result := range results {
		if i >= len(dataset) {
			break
		}
		truth := dataset[i]

		run.RetrievalMetrics = append(run.RetrievalMetrics,
			EvaluateRetrieval(result.RetrievedIDs, truth.RelevantDocIDs, uc.k))
		run.AnswerMetrics = append(run.AnswerMetrics,
			EvaluateAnswerQuality(result.Answer, result.Contexts, truth.GroundTruthAnswer))
	}

	run.AvgRetrieval = averageRetrieval(run.RetrievalMetrics)

	uc.mu.Lock()
	uc.history = append(uc.history, run)
	uc.mu.Unlock()

	if uc.store != nil {
		if err := uc.store.AppendRun(ctx, run); err != nil {
			return nil, fmt.Errorf("persist evaluation run: %w", err)
		}
	}
	return &run, nil
}

// History returns a copy of the in-memory run history.
func (uc *EvaluatorUseCase) History() []domain.EvaluationRun {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	out := make([]domain.EvaluationRun, len(uc.history))
	copy(out, uc.history)
	return out
}

func averageRetrieval(metrics []domain.RetrievalMetrics) domain.RetrievalAverages {
	if len(metrics) == 0 {
		return domain.RetrievalAverages{}
	}
	var avg domain.RetrievalAverages
	for _, m := range metrics {
		avg.Precision += m.PrecisionAtK
		avg.Recall += m.RecallAtK
		avg.F1 += m.F1
		avg.MRR += m.MRR
	}
	n := float64(len(metrics))
	avg.Precision /= n
	avg.Recall /= n
	avg.F1 /= n
	avg.MRR /= n
	return avg
}
