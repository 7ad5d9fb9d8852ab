package documents

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, projectID, ownerID uuid.UUID, req *CreateDocumentRequest) (*Document, error) {
	now := time.Now()

	status := req.Status
	if status == "" {
		status = StatusDraft
	}

	d := &Document{
		ID:          uuid.New(),
		ProjectID:   projectID,
		OwnerUserID: ownerID,
		Title:       req.Title,
		Content:     req.Content,
		WordCount:   countWords(req.Content),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByProject(ctx context.Context, projectID uuid.UUID, page, pageSize int) ([]*Document, int64, error) {
	offset := (page - 1) * pageSize

	rows, err := s.repo.ListByProject(ctx, projectID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.CountByProject(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}

	return rows, count, nil
}

func (s *Service) Update(ctx context.Context, d *Document, req *UpdateDocumentRequest) (*Document, error) {
	if req.Title != nil {
		d.Title = *req.Title
	}
	if req.Content != nil {
		d.Content = *req.Content
		d.WordCount = countWords(d.Content)
	}
	if req.Status != nil {
		d.Status = *req.Status
	}
	d.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
