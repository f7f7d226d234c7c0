package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

// EvaluationStore persists evaluation runs as JSONB rows. The table is
// append-only; runs are never updated or deleted.
type EvaluationStore struct {
	db *sql.DB
}

func NewEvaluationStore(db *sql.DB) *EvaluationStore {
	return &EvaluationStore{db: db}
}

func (s *EvaluationStore) AppendRun(ctx context.Context, run domain.EvaluationRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal evaluation run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO evaluation_runs (run_at, num_questions, payload)
VALUES ($1, $2, $3)
`, run.Timestamp, run.NumQuestions, payload)
	if err != nil {
		return fmt.Errorf("insert evaluation run: %w", err)
	}
	return nil
}

func (s *EvaluationStore) ListRuns(ctx context.Context, limit int) ([]domain.EvaluationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT payload
FROM evaluation_runs
ORDER BY run_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluation runs: %w", err)
	}
	defer rows.Close()

	var out []domain.EvaluationRun
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan evaluation run: %w", err)
		}
		var run domain.EvaluationRun
		if err := json.Unmarshal(payload, &run); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation runs: %w", err)
	}
	return out, nil
}
