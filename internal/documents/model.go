package documents

import (
	"time"

	"github.com/google/uuid"
)

// Document statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

type Document struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	OwnerUserID uuid.UUID  `json:"owner_user_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	WordCount   int        `json:"word_count"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

type CreateDocumentRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=255"`
	Content string `json:"content"`
	Status  string `json:"status" validate:"omitempty,oneof=draft published archived"`
}

type UpdateDocumentRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=255"`
	Content *string `json:"content"`
	Status  *string `json:"status" validate:"omitempty,oneof=draft published archived"`
}
