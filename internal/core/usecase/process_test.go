package usecase

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
	"github.com/dkovalev/interview-copilot/internal/core/ports"
)

type extractorFake struct {
	stories []domain.Story
	err     error
}

func (f *extractorFake) Extract(_ context.Context, _ *domain.Upload, _ io.Reader) ([]domain.Story, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stories, nil
}

type fixedChunker struct{ size int }

func (c fixedChunker) Split(text string) []string {
	if len(text) <= c.size {
		return []string{text}
	}
	var out []string
	for start := 0; start < len(text); start += c.size {
		end := start + c.size
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[start:end])
	}
	return out
}

func newProcessUseCase(
	stories *storyRepoFake,
	uploads *uploadRepoFake,
	storage *storageFake,
	extractors map[string]ports.StoryExtractor,
	index *IndexUseCase,
	queue *queueFake,
) *ProcessUseCase {
	return NewProcessUseCase(stories, uploads, storage, extractors, fixedChunker{size: 1000}, index, queue)
}

func TestProcessStoryIndexesAndMarksReady(t *testing.T) {
	repo := newStoryRepoFake()
	repo.created = []domain.Story{{ID: "s1", Content: "ANSWER: one", Status: domain.StatusUploaded}}

	store := newVectorStoreFake()
	index := NewIndexUseCase(&embedderFake{}, store, "m")
	if err := index.Create(context.Background(), nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	uc := newProcessUseCase(repo, newUploadRepoFake(), newStorageFake(), nil, index, &queueFake{})
	if err := uc.ProcessStory(context.Background(), "s1"); err != nil {
		t.Fatalf("ProcessStory() error = %v", err)
	}
	if repo.statuses["s1"] != domain.StatusReady {
		t.Fatalf("expected ready status, got %s", repo.statuses["s1"])
	}
	if len(store.points) != 1 {
		t.Fatalf("expected story indexed, got %d points", len(store.points))
	}
}

func TestProcessStoryMarksFailedOnIndexError(t *testing.T) {
	repo := newStoryRepoFake()
	repo.created = []domain.Story{{ID: "s1", Content: "ANSWER: one"}}

	// Index never initialized: Add fails and the story must be marked failed.
	index := NewIndexUseCase(&embedderFake{}, newVectorStoreFake(), "m")
	uc := newProcessUseCase(repo, newUploadRepoFake(), newStorageFake(), nil, index, &queueFake{})

	err := uc.ProcessStory(context.Background(), "s1")
	if !domain.IsKind(err, domain.ErrNotInitialized) {
		t.Fatalf("expected not-initialized error, got %v", err)
	}
	if repo.statuses["s1"] != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", repo.statuses["s1"])
	}
}

func TestProcessUploadExtractsStoresAndQueues(t *testing.T) {
	uploads := newUploadRepoFake()
	uploads.uploads["u1"] = &domain.Upload{
		ID:          "u1",
		Filename:    "answers.txt",
		MimeType:    "text/plain",
		StoragePath: "u1_answers.txt",
		CreatedAt:   time.Now().UTC(),
	}
	storage := newStorageFake()
	if err := storage.Save(context.Background(), "u1_answers.txt", strings.NewReader("raw")); err != nil {
		t.Fatalf("seed storage: %v", err)
	}

	repo := newStoryRepoFake()
	queue := &queueFake{}
	extractors := map[string]ports.StoryExtractor{
		"text/plain": &extractorFake{stories: []domain.Story{
			{Kind: domain.KindRaw, Content: "ANSWER: one"},
			{Kind: domain.KindRaw, Content: "ANSWER: one"},
			{Kind: domain.KindRaw, Content: "ANSWER: two"},
		}},
	}

	index := NewIndexUseCase(&embedderFake{}, newVectorStoreFake(), "m")
	uc := newProcessUseCase(repo, uploads, storage, extractors, index, queue)

	if err := uc.ProcessUpload(context.Background(), "u1"); err != nil {
		t.Fatalf("ProcessUpload() error = %v", err)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected extracted stories deduplicated to 2, got %d", len(repo.created))
	}
	if len(queue.storyIDs) != 2 {
		t.Fatalf("expected 2 queued stories, got %d", len(queue.storyIDs))
	}
	for _, s := range repo.created {
		if s.Source != "answers.txt" {
			t.Fatalf("expected source set from upload filename, got %q", s.Source)
		}
	}
	if uploads.statuses["u1"] != domain.StatusReady {
		t.Fatalf("expected upload ready, got %s", uploads.statuses["u1"])
	}
}

func TestProcessUploadUnsupportedMimeMarksFailed(t *testing.T) {
	uploads := newUploadRepoFake()
	uploads.uploads["u1"] = &domain.Upload{ID: "u1", MimeType: "application/zip"}

	index := NewIndexUseCase(&embedderFake{}, newVectorStoreFake(), "m")
	uc := newProcessUseCase(newStoryRepoFake(), uploads, newStorageFake(), nil, index, &queueFake{})

	err := uc.ProcessUpload(context.Background(), "u1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error, got %v", err)
	}
	if uploads.statuses["u1"] != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", uploads.statuses["u1"])
	}
}

func TestSplitLongStoriesChunksRawContent(t *testing.T) {
	index := NewIndexUseCase(&embedderFake{}, newVectorStoreFake(), "m")
	uc := NewProcessUseCase(newStoryRepoFake(), newUploadRepoFake(), newStorageFake(), nil,
		fixedChunker{size: 10}, index, &queueFake{})

	long := domain.Story{Kind: domain.KindRaw, Title: "notes", Content: strings.Repeat("a", 25)}
	short := domain.Story{Kind: domain.KindQAPair, Content: strings.Repeat("b", 25)}

	out := uc.splitLongStories([]domain.Story{long, short})
	if len(out) != 4 {
		t.Fatalf("expected 3 chunks + 1 untouched qa pair, got %d", len(out))
	}
	if out[0].Title != "notes (part 1)" {
		t.Fatalf("expected part titles, got %q", out[0].Title)
	}
	if out[3].Content != short.Content {
		t.Fatalf("qa pairs must pass through whole")
	}
}
