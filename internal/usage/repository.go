package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventStore persists generation events and answers quota queries.
type EventStore interface {
	InsertEvent(ctx context.Context, event *GenerationEvent) error
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// RollupStore maintains the monthly aggregates.
type RollupStore interface {
	ApplyEvent(ctx context.Context, userID uuid.UUID, occurredAt time.Time, tokens, words int) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*UsageRollup, int, error)
}

// Repository implements EventStore and RollupStore on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) InsertEvent(ctx context.Context, event *GenerationEvent) error {
	query := `
		INSERT INTO generation_events (id, user_id, document_id, prompt, output, model, prompt_tokens, completion_tokens, total_tokens, word_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		event.ID, event.UserID, event.DocumentID, event.Prompt, event.Output,
		event.Model, event.PromptTokens, event.CompletionTokens,
		event.TotalTokens, event.WordCount, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting generation event: %w", err)
	}
	return nil
}

func (r *Repository) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM generation_events WHERE user_id = $1 AND created_at >= $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting generation events: %w", err)
	}
	return count, nil
}

// ApplyEvent folds one event into the user's rollup for the month containing
// occurredAt. The upsert increments in a single statement so concurrent
// consumers never lose updates; there is no read-modify-write window.
func (r *Repository) ApplyEvent(ctx context.Context, userID uuid.UUID, occurredAt time.Time, tokens, words int) error {
	periodStart, periodEnd := MonthPeriod(occurredAt)

	query := `
		INSERT INTO usage_rollups (id, user_id, period_start, period_end, generation_count, total_tokens, total_words, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6, NOW())
		ON CONFLICT (user_id, period_start) DO UPDATE SET
			generation_count = usage_rollups.generation_count + 1,
			total_tokens     = usage_rollups.total_tokens + EXCLUDED.total_tokens,
			total_words      = usage_rollups.total_words + EXCLUDED.total_words,
			updated_at       = NOW()`

	_, err := r.pool.Exec(ctx, query, uuid.New(), userID, periodStart, periodEnd, tokens, words)
	if err != nil {
		return fmt.Errorf("applying event to rollup: %w", err)
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*UsageRollup, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM usage_rollups WHERE user_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting rollups: %w", err)
	}

	query := `
		SELECT id, user_id, period_start, period_end, generation_count, total_tokens, total_words, updated_at
		FROM usage_rollups
		WHERE user_id = $1
		ORDER BY period_start DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing rollups: %w", err)
	}
	defer rows.Close()

	var rollups []*UsageRollup
	for rows.Next() {
		rollup := &UsageRollup{}
		err := rows.Scan(&rollup.ID, &rollup.UserID, &rollup.PeriodStart, &rollup.PeriodEnd,
			&rollup.GenerationCount, &rollup.TotalTokens, &rollup.TotalWords, &rollup.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning rollup: %w", err)
		}
		rollups = append(rollups, rollup)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating rollups: %w", err)
	}

	return rollups, total, nil
}
