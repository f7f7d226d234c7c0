package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
	"github.com/dkovalev/interview-copilot/internal/core/ports"
)

// ProcessUseCase is the worker side of ingestion: it turns queued uploads
// into stories and queued stories into index entries.
type ProcessUseCase struct {
	stories    ports.StoryRepository
	uploads    ports.UploadRepository
	storage    ports.ObjectStorage
	extractors map[string]ports.StoryExtractor
	chunker    ports.Chunker
	index      *IndexUseCase
	queue      ports.MessageQueue
}

func NewProcessUseCase(
	stories ports.StoryRepository,
	uploads ports.UploadRepository,
	storage ports.ObjectStorage,
	extractors map[string]ports.StoryExtractor,
	chunker ports.Chunker,
	index *IndexUseCase,
	queue ports.MessageQueue,
) *ProcessUseCase {
	return &ProcessUseCase{
		stories:    stories,
		uploads:    uploads,
		storage:    storage,
		extractors: extractors,
		chunker:    chunker,
		index:      index,
		queue:      queue,
	}
}

// ProcessStory embeds one queued story and adds it to the vector index.
func (uc *ProcessUseCase) ProcessStory(ctx context.Context, storyID string) error {
	if err := uc.stories.UpdateStatus(ctx, storyID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	story, err := uc.stories.GetByID(ctx, storyID)
	if err != nil {
		return fmt.Errorf("fetch story by id: %w", err)
	}

	if err := uc.index.Add(ctx, []domain.Story{*story}); err != nil {
		if failErr := uc.stories.UpdateStatus(ctx, storyID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.stories.UpdateStatus(ctx, storyID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

// ProcessUpload extracts stories from one uploaded file, stores them and
// queues each for indexing.
func (uc *ProcessUseCase) ProcessUpload(ctx context.Context, uploadID string) error {
	if err := uc.uploads.UpdateStatus(ctx, uploadID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processUploadPipeline(ctx, uploadID); err != nil {
		if failErr := uc.uploads.UpdateStatus(ctx, uploadID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.uploads.UpdateStatus(ctx, uploadID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessUseCase) processUploadPipeline(ctx context.Context, uploadID string) error {
	upload, err := uc.uploads.GetByID(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("fetch upload by id: %w", err)
	}

	extractor, ok := uc.extractors[upload.MimeType]
	if !ok {
		return domain.WrapError(domain.ErrInvalidInput, "select extractor",
			fmt.Errorf("unsupported mime type %q", upload.MimeType))
	}

	reader, err := uc.storage.Open(ctx, upload.StoragePath)
	if err != nil {
		return fmt.Errorf("open stored upload: %w", err)
	}
	defer reader.Close()

	extracted, err := extractor.Extract(ctx, upload, reader)
	if err != nil {
		return fmt.Errorf("extract stories: %w", err)
	}
	if len(extracted) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "extract stories",
			errors.New("no stories found in upload"))
	}

	stories := uc.splitLongStories(extracted)
	stories = domain.DeduplicateStories(stories)
	now := time.Now().UTC()

	for _, s := range stories {
		s.ID = uuid.NewString()
		s.Source = upload.Filename
		if s.Kind == "" {
			s.Kind = domain.KindRaw
		}
		if s.Tags == nil {
			s.Tags = []string{}
		}
		s.Status = domain.StatusUploaded
		s.CreatedAt = now
		s.UpdatedAt = now

		if err := uc.stories.Create(ctx, &s); err != nil {
			return fmt.Errorf("store extracted story: %w", err)
		}
		if err := uc.queue.PublishStoryQueued(ctx, s.ID); err != nil {
			return fmt.Errorf("queue extracted story: %w", err)
		}
	}
	return nil
}

// splitLongStories chunks raw extracted text that exceeds the chunker's
// window. QA pairs and STAR stories are short by construction and pass
// through whole.
func (uc *ProcessUseCase) splitLongStories(stories []domain.Story) []domain.Story {
	out := make([]domain.Story, 0, len(stories))
	for _, s := range stories {
		if s.Kind != domain.KindRaw || uc.chunker == nil {
			out = append(out, s)
			continue
		}
		chunks := uc.chunker.Split(s.Content)
		if len(chunks) <= 1 {
			out = append(out, s)
			continue
		}
		for i, chunk := range chunks {
			piece := s
			piece.Content = chunk
			if strings.TrimSpace(s.Title) != "" {
				piece.Title = fmt.Sprintf("%s (part %d)", s.Title, i+1)
			}
			out = append(out, piece)
		}
	}
	return out
}
