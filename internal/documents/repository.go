package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*Document, error)
	CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	Update(ctx context.Context, d *Document) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, d *Document) error {
	query := `
		INSERT INTO documents (id, project_id, owner_user_id, title, content, word_count, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.ProjectID, d.OwnerUserID, d.Title, d.Content,
		d.WordCount, d.Status, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	query := `
		SELECT id, project_id, owner_user_id, title, content, word_count, status, created_at, updated_at, deleted_at
		FROM documents
		WHERE id = $1 AND deleted_at IS NULL`

	d := &Document{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.ProjectID, &d.OwnerUserID, &d.Title, &d.Content,
		&d.WordCount, &d.Status, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying document by id: %w", err)
	}
	return d, nil
}

func (r *postgresRepository) ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*Document, error) {
	query := `
		SELECT id, project_id, owner_user_id, title, content, word_count, status, created_at, updated_at, deleted_at
		FROM documents
		WHERE project_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d := &Document{}
		err := rows.Scan(
			&d.ID, &d.ProjectID, &d.OwnerUserID, &d.Title, &d.Content,
			&d.WordCount, &d.Status, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *postgresRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM documents WHERE project_id = $1 AND deleted_at IS NULL`

	var count int64
	err := r.pool.QueryRow(ctx, query, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) Update(ctx context.Context, d *Document) error {
	query := `
		UPDATE documents
		SET title = $2, content = $3, word_count = $4, status = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query,
		d.ID, d.Title, d.Content, d.WordCount, d.Status, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document not found or already deleted")
	}
	return nil
}

func (r *postgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE documents SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft deleting document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document not found or already deleted")
	}
	return nil
}
