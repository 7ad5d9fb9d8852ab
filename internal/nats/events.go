package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamUsage = "SCRIBEFLOW_USAGE"
)

// Subject constants.
const (
	SubjectUsageRecorded = "scribeflow.usage.recorded"
)

// UsageRecorded is published after each successful generation. The rollup
// consumer folds it into the user's monthly aggregate. Publishing is
// detached from the generation response path so accounting latency never
// shows up in client-perceived latency.
type UsageRecorded struct {
	EventID     uuid.UUID  `json:"event_id"`
	UserID      uuid.UUID  `json:"user_id"`
	DocumentID  *uuid.UUID `json:"document_id,omitempty"`
	Model       string     `json:"model"`
	TotalTokens int        `json:"total_tokens"`
	WordCount   int        `json:"word_count"`
	OccurredAt  time.Time  `json:"occurred_at"`
}
