package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

type StoryRepository struct {
	db *sql.DB
}

func NewStoryRepository(db *sql.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *StoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS stories (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	title TEXT,
	content TEXT NOT NULL,
	source TEXT,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stories_status ON stories(status);
CREATE INDEX IF NOT EXISTS idx_stories_created_at ON stories(created_at DESC);

CREATE TABLE IF NOT EXISTS uploads (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluation_runs (
	id BIGSERIAL PRIMARY KEY,
	run_at TIMESTAMPTZ NOT NULL,
	num_questions INT NOT NULL,
	payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluation_runs_run_at ON evaluation_runs(run_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *StoryRepository) Create(ctx context.Context, story *domain.Story) error {
	tagsJSON, err := json.Marshal(story.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO stories (
	id, kind, title, content, source, tags, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		story.ID, string(story.Kind), story.Title, story.Content, story.Source, tagsJSON,
		string(story.Status), story.Error, story.CreatedAt, story.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

func (r *StoryRepository) GetByID(ctx context.Context, id string) (*domain.Story, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, kind, title, content, source, tags, status, error_message, created_at, updated_at
FROM stories
WHERE id = $1
`, id)

	story, err := scanStory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrStoryNotFound, "get story", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan story: %w", err)
	}
	return story, nil
}

func (r *StoryRepository) ListByStatus(ctx context.Context, status domain.StoryStatus) ([]domain.Story, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, kind, title, content, source, tags, status, error_message, created_at, updated_at
FROM stories
WHERE status = $1
ORDER BY created_at ASC
`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var out []domain.Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		out = append(out, *story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}
	return out, nil
}

func (r *StoryRepository) UpdateStatus(ctx context.Context, id string, status domain.StoryStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE stories
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update story status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrStoryNotFound, "update story status", fmt.Errorf("id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner) (*domain.Story, error) {
	var story domain.Story
	var tagsRaw []byte
	var kind, status string

	err := row.Scan(
		&story.ID, &kind, &story.Title, &story.Content, &story.Source,
		&tagsRaw, &status, &story.Error, &story.CreatedAt, &story.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tagsRaw, &story.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	story.Kind = domain.StoryKind(kind)
	story.Status = domain.StoryStatus(status)
	return &story, nil
}
