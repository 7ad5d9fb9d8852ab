package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/scribeflow/scribeflow/internal/api"
	"github.com/scribeflow/scribeflow/internal/metrics"
	inats "github.com/scribeflow/scribeflow/internal/nats"
	"github.com/scribeflow/scribeflow/internal/usage"
)

// UsagePublisher hands successful generations off for rollup aggregation.
type UsagePublisher interface {
	PublishUsageRecorded(ctx context.Context, event inats.UsageRecorded) error
}

// Service runs the generation pipeline: burst brake, daily quota gate,
// upstream call, then usage accounting. The quota gate is the only step
// allowed to block a request outright; accounting failures never fail a
// generation the user already received.
type Service struct {
	upstream       UpstreamClient
	events         usage.EventStore
	rollups        usage.RollupStore
	publisher      UsagePublisher
	burst          *BurstLimiter
	dailyLimit     int
	burstPerMinute int
	now            func() time.Time
}

// NewService wires the generation pipeline. publisher and burst may be nil:
// without a publisher, rollups are applied directly; without a burst
// limiter, only the daily ceiling applies.
func NewService(upstream UpstreamClient, events usage.EventStore, rollups usage.RollupStore,
	publisher UsagePublisher, burst *BurstLimiter, dailyLimit, burstPerMinute int) *Service {
	return &Service{
		upstream:       upstream,
		events:         events,
		rollups:        rollups,
		publisher:      publisher,
		burst:          burst,
		dailyLimit:     dailyLimit,
		burstPerMinute: burstPerMinute,
		now:            time.Now,
	}
}

// Generate runs one generation for the user and returns the provider's
// response body unmodified.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req *GenerateRequest) (*openai.ChatCompletionResponse, error) {
	if s.burst != nil && s.burstPerMinute > 0 {
		allowed, err := s.burst.CheckAndIncrement(ctx, userID, s.burstPerMinute)
		if err != nil {
			// Redis being down must not take generations down with it.
			slog.Warn("burst limiter unavailable, allowing request", "error", err, "user_id", userID)
		} else if !allowed {
			metrics.GenerationsTotal.WithLabelValues("burst_limited").Inc()
			return nil, api.ErrTooManyRequests
		}
	}

	now := s.now()
	used, err := s.events.CountSince(ctx, userID, usage.StartOfDay(now))
	if err != nil {
		// The gate cannot be answered, so the request cannot proceed:
		// failing open here would make the ceiling unenforceable.
		metrics.GenerationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("counting today's generations: %w", err)
	}
	if used >= s.dailyLimit {
		metrics.QuotaRejectionsTotal.Inc()
		metrics.GenerationsTotal.WithLabelValues("quota_exceeded").Inc()
		return nil, &api.QuotaExceededError{Limit: s.dailyLimit}
	}

	start := time.Now()
	resp, err := s.upstream.Complete(ctx, req.Messages)
	metrics.UpstreamRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("upstream_error").Inc()
		return nil, err
	}

	s.record(ctx, userID, req, resp, now)

	metrics.GenerationsTotal.WithLabelValues("success").Inc()
	metrics.TokensConsumedTotal.Add(float64(resp.Usage.TotalTokens))
	return resp, nil
}

// record persists the generation event and queues it for rollup. Errors are
// logged, never returned: the user already has their content.
func (s *Service) record(ctx context.Context, userID uuid.UUID, req *GenerateRequest, resp *openai.ChatCompletionResponse, occurredAt time.Time) {
	output := responseOutput(resp)
	event := &usage.GenerationEvent{
		ID:               uuid.New(),
		UserID:           userID,
		DocumentID:       req.DocumentID,
		Prompt:           lastUserMessage(req.Messages),
		Output:           output,
		Model:            s.upstream.Model(),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		WordCount:        len(strings.Fields(output)),
		CreatedAt:        occurredAt,
	}

	if err := s.events.InsertEvent(ctx, event); err != nil {
		slog.Error("recording generation event", "error", err, "user_id", userID)
		return
	}

	recorded := inats.UsageRecorded{
		EventID:     event.ID,
		UserID:      event.UserID,
		DocumentID:  event.DocumentID,
		Model:       event.Model,
		TotalTokens: event.TotalTokens,
		WordCount:   event.WordCount,
		OccurredAt:  event.CreatedAt,
	}

	if s.publisher != nil {
		err := s.publisher.PublishUsageRecorded(ctx, recorded)
		if err == nil {
			return
		}
		slog.Warn("publishing usage event, applying rollup directly", "error", err, "event_id", event.ID)
	}

	// No queue available: fold into the rollup in-line. The upsert is a
	// single statement, so this stays cheap.
	if err := s.rollups.ApplyEvent(ctx, event.UserID, event.CreatedAt, event.TotalTokens, event.WordCount); err != nil {
		slog.Error("applying rollup directly", "error", err, "event_id", event.ID)
	}
}

// responseOutput returns the generated text from the first choice.
func responseOutput(resp *openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

// lastUserMessage returns the content of the final user-role turn, which is
// what the event log records as the prompt.
func lastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
