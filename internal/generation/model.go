package generation

import "github.com/google/uuid"

// ChatMessage is one turn of the conversation sent to the model provider.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// GenerateRequest is the client payload for a generation call. The model
// field is accepted for compatibility with older editor builds but never
// forwarded; the server always substitutes its configured model.
type GenerateRequest struct {
	Messages   []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Model      string        `json:"model"`
	DocumentID *uuid.UUID    `json:"document_id"`
}
