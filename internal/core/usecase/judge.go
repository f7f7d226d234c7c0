package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
	"github.com/dkovalev/interview-copilot/internal/core/ports"
)

const (
	defaultTopK              = 5
	defaultMinRelevanceScore = 7
	// generationContextSize bounds how many candidates feed the synthesis
	// prompt on the GENERATED branch.
	generationContextSize = 3
)

// JudgeObserver receives judgment telemetry. Implemented by the prometheus
// metrics registry; a nil observer disables reporting.
type JudgeObserver interface {
	DecisionMade(source domain.AnswerSource, confidence int)
	CandidateEvaluated(parseFailed bool)
}

// JudgeUseCase runs the retrieve-then-decide pipeline: retrieve candidates,
// have the language model score each one, reuse the best stored answer when
// it clears the threshold, otherwise synthesize a new answer from the top
// candidates.
type JudgeUseCase struct {
	retriever ports.CandidateRetriever
	judge     ports.CompletionModel
	generator ports.CompletionModel

	judgeTemperature      float64
	generationTemperature float64
	defaultTopK           int
	defaultMinRelevance   int
	observer              JudgeObserver
}

type JudgeConfig struct {
	JudgeTemperature      float64
	GenerationTemperature float64
	TopK                  int
	MinRelevanceScore     int
}

func NewJudgeUseCase(
	retriever ports.CandidateRetriever,
	judge ports.CompletionModel,
	generator ports.CompletionModel,
	cfg JudgeConfig,
	observer JudgeObserver,
) *JudgeUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.MinRelevanceScore <= 0 {
		cfg.MinRelevanceScore = defaultMinRelevanceScore
	}
	if cfg.GenerationTemperature <= 0 {
		cfg.GenerationTemperature = 0.3
	}
	return &JudgeUseCase{
		retriever:             retriever,
		judge:                 judge,
		generator:             generator,
		judgeTemperature:      cfg.JudgeTemperature,
		generationTemperature: cfg.GenerationTemperature,
		defaultTopK:           cfg.TopK,
		defaultMinRelevance:   cfg.MinRelevanceScore,
		observer:              observer,
	}
}

// Ask answers one interview question. A provider failure during evaluation or
// generation is fatal for the question; a malformed judgment response only
// degrades that one candidate.
func (uc *JudgeUseCase) Ask(ctx context.Context, question string, opts ports.AskOptions) (*domain.Decision, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = uc.defaultTopK
	}
	minRelevance := opts.MinRelevanceScore
	if minRelevance <= 0 {
		minRelevance = uc.defaultMinRelevance
	}

	candidates, err := uc.retriever.Basic(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}

	// An empty corpus is a required edge case, not a crash path: generation
	// proceeds with zero context and produces a best-effort answer.
	if len(candidates) == 0 {
		answer, genErr := uc.generate(ctx, question, nil)
		if genErr != nil {
			return nil, genErr
		}
		decision := &domain.Decision{
			Answer:              answer,
			Source:              domain.SourceGenerated,
			Confidence:          0,
			Reasoning:           "No prepared materials available. Generated answer without context.",
			CandidatesEvaluated: 0,
		}
		uc.observeDecision(decision)
		return decision, nil
	}

	evaluations, err := uc.evaluateCandidates(ctx, question, candidates)
	if err != nil {
		return nil, err
	}

	bestIdx := selectBest(evaluations)
	best := evaluations[bestIdx]

	if best.RelevanceScore >= minRelevance {
		decision := &domain.Decision{
			Answer:              candidates[bestIdx].Story.Content,
			Source:              domain.SourcePrepared,
			Confidence:          best.RelevanceScore,
			Reasoning:           best.Reasoning,
			CandidatesEvaluated: len(candidates),
		}
		uc.observeDecision(decision)
		return decision, nil
	}

	contextCandidates := candidates
	if len(contextCandidates) > generationContextSize {
		contextCandidates = contextCandidates[:generationContextSize]
	}
	answer, err := uc.generate(ctx, question, contextCandidates)
	if err != nil {
		return nil, err
	}

	decision := &domain.Decision{
		Answer:     answer,
		Source:     domain.SourceGenerated,
		Confidence: best.RelevanceScore,
		Reasoning: fmt.Sprintf(
			"No perfect match found (best: %d/10). Generated answer using your prepared materials as context.",
			best.RelevanceScore,
		),
		CandidatesEvaluated: len(candidates),
		UsedContexts:        len(contextCandidates),
	}
	uc.observeDecision(decision)
	return decision, nil
}

// EvaluateCandidates exposes per-candidate judgments for inspection and the
// evaluation endpoint.
func (uc *JudgeUseCase) EvaluateCandidates(ctx context.Context, question string, candidates []domain.Candidate) ([]domain.Evaluation, error) {
	return uc.evaluateCandidates(ctx, question, candidates)
}

func (uc *JudgeUseCase) evaluateCandidates(ctx context.Context, question string, candidates []domain.Candidate) ([]domain.Evaluation, error) {
	evaluations := make([]domain.Evaluation, 0, len(candidates))
	for _, candidate := range candidates {
		// Each candidate is an independent unit of work; honor caller
		// cancellation between them.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prompt := buildEvaluationPrompt(question, candidate.Story.Content)
		raw, err := uc.judge.Complete(ctx, prompt, uc.judgeTemperature)
		if err != nil {
			// Backend unavailability is fatal for the question, unlike a
			// malformed response.
			return nil, domain.WrapError(domain.ErrProvider, "evaluate candidate", err)
		}

		evaluation := parseEvaluation(raw)
		evaluations = append(evaluations, evaluation)
		if uc.observer != nil {
			uc.observer.CandidateEvaluated(evaluation.Failed)
		}
	}
	return evaluations, nil
}

func (uc *JudgeUseCase) generate(ctx context.Context, question string, candidates []domain.Candidate) (string, error) {
	prompt := buildGenerationPrompt(question, candidates)
	answer, err := uc.generator.Complete(ctx, prompt, uc.generationTemperature)
	if err != nil {
		return "", domain.WrapError(domain.ErrProvider, "generate answer", err)
	}
	return strings.TrimSpace(answer), nil
}

// parseEvaluation turns a raw model response into an Evaluation. Anything the
// engine cannot parse becomes a Failed evaluation with score 0 so one bad
// response never aborts the batch.
func parseEvaluation(raw string) domain.Evaluation {
	var parsed struct {
		RelevanceScore *int    `json:"relevance_score"`
		Reasoning      *string `json:"reasoning"`
		ShouldUse      *bool   `json:"should_use"`
	}

	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil ||
		parsed.RelevanceScore == nil || parsed.Reasoning == nil || parsed.ShouldUse == nil {
		return domain.Evaluation{
			RelevanceScore: 0,
			Reasoning:      "Evaluation failed",
			ShouldUse:      false,
			Failed:         true,
			Raw:            raw,
		}
	}

	score := *parsed.RelevanceScore
	if score < 1 || score > 10 {
		return domain.Evaluation{
			RelevanceScore: 0,
			Reasoning:      "Evaluation failed",
			ShouldUse:      false,
			Failed:         true,
			Raw:            raw,
		}
	}

	return domain.Evaluation{
		RelevanceScore: score,
		Reasoning:      *parsed.Reasoning,
		ShouldUse:      *parsed.ShouldUse,
	}
}

// selectBest picks the highest score; ties go to the earliest retrieval rank,
// which keeps selection deterministic for a fixed index state.
func selectBest(evaluations []domain.Evaluation) int {
	best := 0
	for i, e := range evaluations[1:] {
		if e.RelevanceScore > evaluations[best].RelevanceScore {
			best = i + 1
		}
	}
	return best
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func (uc *JudgeUseCase) observeDecision(d *domain.Decision) {
	if uc.observer != nil {
		uc.observer.DecisionMade(d.Source, d.Confidence)
	}
}
