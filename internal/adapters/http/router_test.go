package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkovalev/interview-copilot/internal/config"
	"github.com/dkovalev/interview-copilot/internal/core/domain"
	"github.com/dkovalev/interview-copilot/internal/core/ports"
	"github.com/dkovalev/interview-copilot/internal/core/usecase"
)

type judgeFake struct {
	decision *domain.Decision
	err      error
	lastOpts ports.AskOptions
}

func (f *judgeFake) Ask(_ context.Context, _ string, opts ports.AskOptions) (*domain.Decision, error) {
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.decision, nil
}

type ingestFake struct {
	stories []domain.Story
	upload  *domain.Upload
	err     error
}

func (f *ingestFake) CreateStories(_ context.Context, stories []domain.Story) ([]domain.Story, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.stories = append(f.stories, stories...)
	return stories, nil
}

func (f *ingestFake) Upload(_ context.Context, filename, _ string, _ io.Reader) (*domain.Upload, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.upload != nil {
		return f.upload, nil
	}
	return &domain.Upload{ID: "u1", Filename: filename}, nil
}

type retrieverServiceFake struct {
	candidates []domain.Candidate
	comparison *domain.RetrievalComparison
	err        error
}

func (f *retrieverServiceFake) Basic(context.Context, string, int) ([]domain.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func (f *retrieverServiceFake) Compare(context.Context, string, int) (*domain.RetrievalComparison, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.comparison, nil
}

type indexServiceFake struct {
	stats *domain.IndexStats
	err   error
}

func (f *indexServiceFake) Stats(context.Context) (*domain.IndexStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

type evaluatorServiceFake struct {
	run     *domain.EvaluationRun
	results []usecase.QAResult
	err     error
}

func (f *evaluatorServiceFake) EvaluateBatch(_ context.Context, results []usecase.QAResult, _ []domain.GroundTruth) (*domain.EvaluationRun, error) {
	f.results = results
	if f.err != nil {
		return nil, f.err
	}
	return f.run, nil
}

type storyRepoStub struct {
	stories map[string]*domain.Story
}

func (s *storyRepoStub) Create(context.Context, *domain.Story) error { return nil }

func (s *storyRepoStub) GetByID(_ context.Context, id string) (*domain.Story, error) {
	story, ok := s.stories[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrStoryNotFound, "get story", errors.New(id))
	}
	return story, nil
}

func (s *storyRepoStub) ListByStatus(context.Context, domain.StoryStatus) ([]domain.Story, error) {
	var out []domain.Story
	for _, story := range s.stories {
		out = append(out, *story)
	}
	return out, nil
}

func (s *storyRepoStub) UpdateStatus(context.Context, string, domain.StoryStatus, string) error {
	return nil
}

type uploadRepoStub struct{}

func (uploadRepoStub) Create(context.Context, *domain.Upload) error { return nil }
func (uploadRepoStub) GetByID(_ context.Context, id string) (*domain.Upload, error) {
	return nil, domain.WrapError(domain.ErrUploadNotFound, "get upload", errors.New(id))
}
func (uploadRepoStub) UpdateStatus(context.Context, string, domain.StoryStatus, string) error {
	return nil
}

type evalStoreStub struct {
	runs []domain.EvaluationRun
}

func (s *evalStoreStub) AppendRun(context.Context, domain.EvaluationRun) error { return nil }
func (s *evalStoreStub) ListRuns(context.Context, int) ([]domain.EvaluationRun, error) {
	return s.runs, nil
}

func newTestDeps(cfg config.Config) Deps {
	return Deps{
		Config: cfg,
		Ingest: &ingestFake{},
		Judge: &judgeFake{decision: &domain.Decision{
			Answer:     "stored answer",
			Source:     domain.SourcePrepared,
			Confidence: 9,
		}},
		Retriever: &retrieverServiceFake{},
		Index:     &indexServiceFake{stats: &domain.IndexStats{CollectionName: "interview_stories"}},
		Evaluator: &evaluatorServiceFake{run: &domain.EvaluationRun{NumQuestions: 1}},
		EvalStore: &evalStoreStub{},
		Stories:   &storyRepoStub{stories: map[string]*domain.Story{}},
		Uploads:   uploadRepoStub{},
	}
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(newTestDeps(cfg)).Handler()
}

func TestAskReturnsDecision(t *testing.T) {
	deps := newTestDeps(config.Config{})
	judge := deps.Judge.(*judgeFake)
	handler := NewRouter(deps).Handler()

	body := `{"question":"Tell me about a failure","top_k":3,"min_relevance_score":8}`
	req := httptest.NewRequest(http.MethodPost, "/v1/interview/ask", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), `"PREPARED"`) {
		t.Fatalf("expected decision payload, got %s", res.Body.String())
	}
	if judge.lastOpts.TopK != 3 || judge.lastOpts.MinRelevanceScore != 8 {
		t.Fatalf("options not forwarded: %+v", judge.lastOpts)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/interview/ask", strings.NewReader(`{"question":"  "}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskMapsProviderErrorToBadGateway(t *testing.T) {
	deps := newTestDeps(config.Config{})
	deps.Judge = &judgeFake{err: domain.WrapError(domain.ErrProvider, "evaluate candidate", errors.New("connection refused"))}
	handler := NewRouter(deps).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/interview/ask", strings.NewReader(`{"question":"q"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for provider failure, got %d", res.Code)
	}
}

func TestAskMapsUninitializedIndexToConflict(t *testing.T) {
	deps := newTestDeps(config.Config{})
	deps.Judge = &judgeFake{err: domain.WrapError(domain.ErrNotInitialized, "search", errors.New("index not created"))}
	handler := NewRouter(deps).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/interview/ask", strings.NewReader(`{"question":"q"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 for uninitialized index, got %d", res.Code)
	}
}

func TestCreateStoriesAcceptsQAPairs(t *testing.T) {
	deps := newTestDeps(config.Config{})
	ingest := deps.Ingest.(*ingestFake)
	handler := NewRouter(deps).Handler()

	body := `{"stories":[{"question":"Why us","answer":"Because scale.","tags":["motivation"]}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/stories", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if len(ingest.stories) != 1 || ingest.stories[0].Kind != domain.KindQAPair {
		t.Fatalf("expected one qa pair forwarded, got %+v", ingest.stories)
	}
	if !strings.Contains(ingest.stories[0].Content, "QUESTION: Why us") {
		t.Fatalf("qa content not assembled: %q", ingest.stories[0].Content)
	}
}

func TestGetStoryNotFound(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/stories/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestIndexStats(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/index/stats", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "interview_stories") {
		t.Fatalf("expected stats payload, got %s", res.Body.String())
	}
}

func TestRunEvaluationWithoutDataset(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/eval/run", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without dataset, got %d", res.Code)
	}
}

func TestRunEvaluationCollectsQAResults(t *testing.T) {
	deps := newTestDeps(config.Config{EvalK: 2})
	deps.Dataset = []domain.GroundTruth{{Question: "q1", RelevantDocIDs: []string{"s1"}}}
	deps.Retriever = &retrieverServiceFake{candidates: []domain.Candidate{
		{Story: domain.Story{ID: "s1", Content: "ctx one"}, Rank: 1},
		{Story: domain.Story{ID: "s2", Content: "ctx two"}, Rank: 2},
	}}
	evaluator := deps.Evaluator.(*evaluatorServiceFake)
	handler := NewRouter(deps).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/eval/run", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(evaluator.results) != 1 {
		t.Fatalf("expected one qa result, got %d", len(evaluator.results))
	}
	got := evaluator.results[0]
	if got.Answer != "stored answer" || len(got.RetrievedIDs) != 2 || got.RetrievedIDs[0] != "s1" {
		t.Fatalf("unexpected qa result %+v", got)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}
