package usage

import (
	"time"

	"github.com/google/uuid"
)

// GenerationEvent is the immutable record of one successful AI generation.
// Events are append-only; quota decisions and rollups both derive from them.
type GenerationEvent struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	DocumentID       *uuid.UUID `json:"document_id,omitempty"`
	Prompt           string     `json:"prompt"`
	Output           string     `json:"output"`
	Model            string     `json:"model"`
	PromptTokens     int        `json:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens"`
	TotalTokens      int        `json:"total_tokens"`
	WordCount        int        `json:"word_count"`
	CreatedAt        time.Time  `json:"created_at"`
}

// UsageRollup is the per-user monthly aggregate, maintained incrementally
// by the rollup consumer as events arrive.
type UsageRollup struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	GenerationCount int       `json:"generation_count"`
	TotalTokens     int       `json:"total_tokens"`
	TotalWords      int       `json:"total_words"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// QuotaStatus reports a user's standing against the daily generation ceiling.
type QuotaStatus struct {
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}
