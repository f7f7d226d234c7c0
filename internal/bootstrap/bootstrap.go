package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dkovalev/interview-copilot/internal/config"
	"github.com/dkovalev/interview-copilot/internal/core/domain"
	"github.com/dkovalev/interview-copilot/internal/core/ports"
	"github.com/dkovalev/interview-copilot/internal/core/usecase"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/chunking"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/dataset"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/extractor/pdfdoc"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/extractor/plaintext"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/extractor/spreadsheet"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/llm/ollama"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/queue/nats"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/repository/postgres"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/resilience"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/storage/localfs"
	"github.com/dkovalev/interview-copilot/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Stories   ports.StoryRepository
	Uploads   ports.UploadRepository
	EvalStore ports.EvaluationStore

	Index     *usecase.IndexUseCase
	Retriever *usecase.RetrieverUseCase
	Judge     *usecase.JudgeUseCase
	Ingest    *usecase.StoryIngestUseCase
	Process   *usecase.ProcessUseCase
	Evaluator *usecase.EvaluatorUseCase

	Dataset []domain.GroundTruth

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, observer usecase.JudgeObserver) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	storyRepo := postgres.NewStoryRepository(db)
	if err := storyRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	uploadRepo := postgres.NewUploadRepository(db)
	evalStore := postgres.NewEvaluationStore(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSUploadSubject, cfg.NATSStorySubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	completer := ollama.NewCompleter(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	index := usecase.NewIndexUseCase(embedder, vectorDB, cfg.OllamaEmbedModel)
	if err := warmIndex(ctx, index, storyRepo); err != nil {
		return nil, err
	}

	retriever := usecase.NewRetrieverUseCase(index, completer)

	var judgeRetriever ports.CandidateRetriever = index
	if cfg.ScoreThreshold > 0 {
		judgeRetriever = thresholdRetriever{index: index, threshold: cfg.ScoreThreshold}
	}

	judge := usecase.NewJudgeUseCase(judgeRetriever, completer, completer, usecase.JudgeConfig{
		JudgeTemperature:      cfg.JudgeTemperature,
		GenerationTemperature: cfg.GenerationTemperature,
		TopK:                  cfg.TopK,
		MinRelevanceScore:     cfg.MinRelevanceScore,
	}, observer)

	ingest := usecase.NewStoryIngestUseCase(storyRepo, uploadRepo, storage, queue)

	textExtractor := plaintext.New()
	extractors := map[string]ports.StoryExtractor{
		"text/plain":      textExtractor,
		"text/markdown":   textExtractor,
		"application/pdf": pdfdoc.New(),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": spreadsheet.New(),
	}
	process := usecase.NewProcessUseCase(storyRepo, uploadRepo, storage, extractors, chunker, index, queue)

	evaluator := usecase.NewEvaluatorUseCase(evalStore, cfg.EvalK)

	var groundTruth []domain.GroundTruth
	if cfg.EvalDatasetPath != "" {
		groundTruth, err = dataset.Load(cfg.EvalDatasetPath)
		if err != nil {
			slog.Warn("evaluation dataset unavailable", "path", cfg.EvalDatasetPath, "error", err)
			groundTruth = nil
		}
	}

	return &App{
		Config: cfg,

		Queue:     queue,
		Stories:   storyRepo,
		Uploads:   uploadRepo,
		EvalStore: evalStore,

		Index:     index,
		Retriever: retriever,
		Judge:     judge,
		Ingest:    ingest,
		Process:   process,
		Evaluator: evaluator,

		Dataset: groundTruth,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// warmIndex loads the persisted collection, or rebuilds it from the stories
// already marked ready when the collection does not exist yet.
func warmIndex(ctx context.Context, index *usecase.IndexUseCase, stories ports.StoryRepository) error {
	err := index.Load(ctx)
	if err == nil {
		return nil
	}
	if !domain.IsKind(err, domain.ErrIndexNotFound) {
		return fmt.Errorf("load index: %w", err)
	}

	ready, err := stories.ListByStatus(ctx, domain.StatusReady)
	if err != nil {
		return fmt.Errorf("list ready stories: %w", err)
	}
	if err := index.Create(ctx, ready); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	slog.Info("index rebuilt", "stories", len(ready))
	return nil
}

// thresholdRetriever applies the configured score cutoff to the judgment
// path without affecting the comparison endpoints.
type thresholdRetriever struct {
	index     *usecase.IndexUseCase
	threshold float64
}

func (r thresholdRetriever) Basic(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	threshold := r.threshold
	return r.index.Search(ctx, query, k, &threshold)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
