package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/scribeflow/scribeflow/internal/api"
	"github.com/scribeflow/scribeflow/internal/config"
)

// UpstreamClient abstracts the model provider behind the generation endpoint.
type UpstreamClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (*openai.ChatCompletionResponse, error)
	Model() string
}

// OpenAIClient calls an OpenAI-compatible chat completion API. The model is
// fixed at construction; whatever the client asked for is ignored, so a
// tampered request cannot route to a more expensive model.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient builds the upstream client from config. BaseURL may point
// at any OpenAI-compatible endpoint (or a test server).
func NewOpenAIClient(cfg config.UpstreamConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Model returns the server-configured model identifier.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete sends the conversation to the provider and returns its response
// unmodified. Provider failures map to 502s carrying the provider's status;
// a deadline hit maps to a timeout error so callers can distinguish the two.
func (c *OpenAIClient) Complete(ctx context.Context, messages []ChatMessage) (*openai.ChatCompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		switch {
		case errors.As(err, &apiErr):
			return nil, api.NewUpstreamError(apiErr.HTTPStatusCode)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, api.ErrUpstreamTimeout
		default:
			// Connection resets and client-side timeouts surface as plain
			// transport errors; treat them all as a gateway failure.
			return nil, fmt.Errorf("%w: %s", api.ErrUpstreamDown, err)
		}
	}

	return &resp, nil
}
