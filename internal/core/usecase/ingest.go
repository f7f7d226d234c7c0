package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
	"github.com/dkovalev/interview-copilot/internal/core/ports"
)

// StoryIngestUseCase accepts prepared stories (as JSON) and raw file uploads,
// persists them and queues them for indexing.
type StoryIngestUseCase struct {
	stories ports.StoryRepository
	uploads ports.UploadRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewStoryIngestUseCase(
	stories ports.StoryRepository,
	uploads ports.UploadRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *StoryIngestUseCase {
	return &StoryIngestUseCase{
		stories: stories,
		uploads: uploads,
		storage: storage,
		queue:   queue,
	}
}

// CreateStories deduplicates the batch by content, stores the survivors and
// queues each for embedding. Returns the stored stories with assigned IDs.
func (uc *StoryIngestUseCase) CreateStories(ctx context.Context, stories []domain.Story) ([]domain.Story, error) {
	if len(stories) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create stories",
			errors.New("empty story batch"))
	}
	for _, s := range stories {
		if strings.TrimSpace(s.Content) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "create stories",
				errors.New("story content is required"))
		}
	}

	unique := domain.DeduplicateStories(stories)
	now := time.Now().UTC()

	out := make([]domain.Story, 0, len(unique))
	for _, s := range unique {
		s.ID = uuid.NewString()
		if s.Kind == "" {
			s.Kind = domain.KindRaw
		}
		if s.Source == "" {
			s.Source = "api"
		}
		if s.Tags == nil {
			s.Tags = []string{}
		}
		s.Status = domain.StatusUploaded
		s.CreatedAt = now
		s.UpdatedAt = now

		if err := uc.stories.Create(ctx, &s); err != nil {
			return nil, fmt.Errorf("store story: %w", err)
		}
		if err := uc.queue.PublishStoryQueued(ctx, s.ID); err != nil {
			return nil, fmt.Errorf("publish story event: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Upload stores one raw file and queues it for extraction and indexing.
func (uc *StoryIngestUseCase) Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Upload, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	upload := &domain.Upload{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.uploads.Create(ctx, upload); err != nil {
		return nil, fmt.Errorf("create upload metadata: %w", err)
	}
	if err := uc.queue.PublishUploadIngested(ctx, upload.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}
	return upload, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
