package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dkovalev/interview-copilot/internal/config"
	"github.com/dkovalev/interview-copilot/internal/core/domain"
	"github.com/dkovalev/interview-copilot/internal/core/ports"
	"github.com/dkovalev/interview-copilot/internal/core/usecase"
	"github.com/dkovalev/interview-copilot/internal/observability/metrics"
)

type retrievalService interface {
	Basic(ctx context.Context, query string, k int) ([]domain.Candidate, error)
	Compare(ctx context.Context, query string, k int) (*domain.RetrievalComparison, error)
}

type indexService interface {
	Stats(ctx context.Context) (*domain.IndexStats, error)
}

type evaluationService interface {
	EvaluateBatch(ctx context.Context, results []usecase.QAResult, dataset []domain.GroundTruth) (*domain.EvaluationRun, error)
}

type Deps struct {
	Config    config.Config
	Ingest    ports.StoryIngestor
	Judge     ports.QuestionAnswerer
	Retriever retrievalService
	Index     indexService
	Evaluator evaluationService
	EvalStore ports.EvaluationStore
	Stories   ports.StoryRepository
	Uploads   ports.UploadRepository
	Dataset   []domain.GroundTruth
	Metrics   *metrics.HTTPServerMetrics
}

type Router struct {
	deps Deps
}

func NewRouter(deps Deps) *Router {
	return &Router{deps: deps}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/stories", rt.handleStories)
	mux.HandleFunc("/v1/stories/", rt.getStoryByID)
	mux.HandleFunc("/v1/uploads", rt.uploadFile)
	mux.HandleFunc("/v1/uploads/", rt.getUploadByID)
	mux.HandleFunc("/v1/interview/ask", rt.ask)
	mux.HandleFunc("/v1/retrieval/compare", rt.compareRetrieval)
	mux.HandleFunc("/v1/index/stats", rt.indexStats)
	mux.HandleFunc("/v1/eval/run", rt.runEvaluation)
	mux.HandleFunc("/v1/eval/runs", rt.listEvaluationRuns)
	if rt.deps.Metrics != nil {
		mux.Handle("/metrics", rt.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware("api", handler)
	}
	handler = backpressureMiddleware(handler,
		rt.deps.Config.APIMaxConcurrent,
		time.Duration(rt.deps.Config.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler,
		rt.deps.Config.APIRateLimitRPS, rt.deps.Config.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type storyRequest struct {
	Kind     string   `json:"kind"`
	Title    string   `json:"title"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
}

func (rt *Router) handleStories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.createStories(w, r)
	case http.MethodGet:
		rt.listStories(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) createStories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stories []storyRequest `json:"stories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	stories := make([]domain.Story, 0, len(req.Stories))
	for _, item := range req.Stories {
		stories = append(stories, storyFromRequest(item))
	}

	created, err := rt.deps.Ingest.CreateStories(r.Context(), stories)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"stories": created})
}

func storyFromRequest(req storyRequest) domain.Story {
	if req.Question != "" && req.Answer != "" {
		return domain.NewQAPair(req.Question, req.Answer, req.Tags)
	}
	kind := domain.StoryKind(req.Kind)
	if kind == "" {
		kind = domain.KindRaw
	}
	return domain.Story{
		Kind:    kind,
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	}
}

func (rt *Router) listStories(w http.ResponseWriter, r *http.Request) {
	status := domain.StoryStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.StatusReady
	}
	stories, err := rt.deps.Stories.ListByStatus(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stories": stories})
}

func (rt *Router) getStoryByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/stories/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "story id is required"})
		return
	}

	story, err := rt.deps.Stories.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (rt *Router) uploadFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	upload, err := rt.deps.Ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, upload)
}

func (rt *Router) getUploadByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/uploads/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "upload id is required"})
		return
	}

	upload, err := rt.deps.Uploads.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question          string `json:"question"`
		TopK              int    `json:"top_k"`
		MinRelevanceScore int    `json:"min_relevance_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	decision, err := rt.deps.Judge.Ask(r.Context(), req.Question, ports.AskOptions{
		TopK:              req.TopK,
		MinRelevanceScore: req.MinRelevanceScore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.ObserveAskDuration(time.Since(start))
	}
	writeJSON(w, http.StatusOK, decision)
}

func (rt *Router) compareRetrieval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
		K        int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	if req.K <= 0 {
		req.K = rt.deps.Config.TopK
	}

	comparison, err := rt.deps.Retriever.Compare(r.Context(), req.Question, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordRetrieval("basic", comparison.Basic.Count)
		rt.deps.Metrics.RecordRetrieval("diversity_aware", comparison.DiversityAware.Count)
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (rt *Router) indexStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats, err := rt.deps.Index.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) runEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if len(rt.deps.Dataset) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no evaluation dataset configured"})
		return
	}

	k := rt.deps.Config.EvalK
	if k <= 0 {
		k = 4
	}

	results := make([]usecase.QAResult, 0, len(rt.deps.Dataset))
	for _, entry := range rt.deps.Dataset {
		candidates, err := rt.deps.Retriever.Basic(r.Context(), entry.Question, k)
		if err != nil {
			writeError(w, err)
			return
		}
		ids := make([]string, 0, len(candidates))
		contexts := make([]string, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.Story.ID)
			contexts = append(contexts, c.Story.Content)
		}

		decision, err := rt.deps.Judge.Ask(r.Context(), entry.Question, ports.AskOptions{})
		if err != nil {
			writeError(w, err)
			return
		}

		results = append(results, usecase.QAResult{
			Question:     entry.Question,
			Answer:       decision.Answer,
			RetrievedIDs: ids,
			Contexts:     contexts,
		})
	}

	run, err := rt.deps.Evaluator.EvaluateBatch(r.Context(), results, rt.deps.Dataset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) listEvaluationRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := rt.deps.EvalStore.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
