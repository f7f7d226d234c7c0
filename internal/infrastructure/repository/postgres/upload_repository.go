package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

type UploadRepository struct {
	db *sql.DB
}

func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO uploads (
	id, filename, mime_type, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		upload.ID, upload.Filename, upload.MimeType, upload.StoragePath,
		string(upload.Status), upload.Error, upload.CreatedAt, upload.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

func (r *UploadRepository) GetByID(ctx context.Context, id string) (*domain.Upload, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, status, error_message, created_at, updated_at
FROM uploads
WHERE id = $1
`, id)

	var upload domain.Upload
	var status string
	err := row.Scan(
		&upload.ID, &upload.Filename, &upload.MimeType, &upload.StoragePath,
		&status, &upload.Error, &upload.CreatedAt, &upload.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrUploadNotFound, "get upload", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan upload: %w", err)
	}
	upload.Status = domain.StoryStatus(status)
	return &upload, nil
}

func (r *UploadRepository) UpdateStatus(ctx context.Context, id string, status domain.StoryStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE uploads
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update upload status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrUploadNotFound, "update upload status", fmt.Errorf("id %s", id))
	}
	return nil
}
