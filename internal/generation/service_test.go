package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeflow/scribeflow/internal/api"
	inats "github.com/scribeflow/scribeflow/internal/nats"
	"github.com/scribeflow/scribeflow/internal/usage"
)

type stubUpstream struct {
	resp  *openai.ChatCompletionResponse
	err   error
	calls int
}

func (s *stubUpstream) Complete(_ context.Context, _ []ChatMessage) (*openai.ChatCompletionResponse, error) {
	s.calls++
	return s.resp, s.err
}

func (s *stubUpstream) Model() string { return "gpt-4o-mini" }

type stubEvents struct {
	count     int
	countErr  error
	insertErr error
	lastSince time.Time
	inserted  []*usage.GenerationEvent
}

func (s *stubEvents) InsertEvent(_ context.Context, event *usage.GenerationEvent) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, event)
	return nil
}

func (s *stubEvents) CountSince(_ context.Context, _ uuid.UUID, since time.Time) (int, error) {
	s.lastSince = since
	return s.count, s.countErr
}

type stubRollups struct {
	applied int
	err     error
}

func (s *stubRollups) ApplyEvent(_ context.Context, _ uuid.UUID, _ time.Time, _, _ int) error {
	if s.err != nil {
		return s.err
	}
	s.applied++
	return nil
}

func (s *stubRollups) ListByUser(_ context.Context, _ uuid.UUID, _, _ int) ([]*usage.UsageRollup, int, error) {
	return nil, 0, nil
}

type stubPublisher struct {
	err    error
	events []inats.UsageRecorded
}

func (s *stubPublisher) PublishUsageRecorded(_ context.Context, event inats.UsageRecorded) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func completionResponse(content string, totalTokens int) *openai.ChatCompletionResponse {
	return &openai.ChatCompletionResponse{
		ID:    "chatcmpl-test",
		Model: "gpt-4o-mini",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: "assistant", Content: content}},
		},
		Usage: openai.Usage{TotalTokens: totalTokens},
	}
}

func testRequest() *GenerateRequest {
	return &GenerateRequest{
		Messages: []ChatMessage{{Role: "user", Content: "continue this paragraph"}},
	}
}

func TestGenerate_Success(t *testing.T) {
	upstream := &stubUpstream{resp: completionResponse("four words were generated", 42)}
	events := &stubEvents{}
	publisher := &stubPublisher{}
	svc := NewService(upstream, events, &stubRollups{}, publisher, nil, 25, 0)

	userID := uuid.New()
	docID := uuid.New()
	req := testRequest()
	req.DocumentID = &docID

	resp, err := svc.Generate(context.Background(), userID, req)
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-test", resp.ID)

	require.Len(t, events.inserted, 1)
	event := events.inserted[0]
	assert.Equal(t, userID, event.UserID)
	assert.Equal(t, &docID, event.DocumentID)
	assert.Equal(t, "continue this paragraph", event.Prompt)
	assert.Equal(t, "four words were generated", event.Output)
	assert.Equal(t, "gpt-4o-mini", event.Model)
	assert.Equal(t, 42, event.TotalTokens)
	assert.Equal(t, 4, event.WordCount)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, event.ID, publisher.events[0].EventID)
}

func TestGenerate_QuotaBoundary(t *testing.T) {
	tests := []struct {
		name     string
		used     int
		wantOver bool
	}{
		{"one below limit passes", 24, false},
		{"at limit rejects", 25, true},
		{"over limit rejects", 30, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &stubUpstream{resp: completionResponse("ok", 1)}
			events := &stubEvents{count: tt.used}
			svc := NewService(upstream, events, &stubRollups{}, &stubPublisher{}, nil, 25, 0)

			_, err := svc.Generate(context.Background(), uuid.New(), testRequest())

			if tt.wantOver {
				var quotaErr *api.QuotaExceededError
				require.ErrorAs(t, err, &quotaErr)
				assert.Equal(t, 25, quotaErr.Limit)
				assert.Zero(t, upstream.calls, "upstream must not be called once the ceiling is hit")
				assert.Empty(t, events.inserted)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 1, upstream.calls)
			}
		})
	}
}

func TestGenerate_QuotaWindowIsCalendarDay(t *testing.T) {
	upstream := &stubUpstream{resp: completionResponse("ok", 1)}
	events := &stubEvents{count: 0}
	svc := NewService(upstream, events, &stubRollups{}, &stubPublisher{}, nil, 25, 0)
	svc.now = func() time.Time {
		return time.Date(2025, time.May, 2, 0, 5, 0, 0, time.UTC)
	}

	_, err := svc.Generate(context.Background(), uuid.New(), testRequest())
	require.NoError(t, err)

	// Just after midnight, only events since midnight count: yesterday's
	// exhausted quota does not carry over.
	assert.Equal(t, time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC), events.lastSince)
}

func TestGenerate_QuotaCheckFailureBlocks(t *testing.T) {
	upstream := &stubUpstream{resp: completionResponse("ok", 1)}
	events := &stubEvents{countErr: errors.New("connection refused")}
	svc := NewService(upstream, events, &stubRollups{}, &stubPublisher{}, nil, 25, 0)

	_, err := svc.Generate(context.Background(), uuid.New(), testRequest())

	assert.Error(t, err)
	assert.Zero(t, upstream.calls)
}

func TestGenerate_UpstreamErrorPropagates(t *testing.T) {
	upstream := &stubUpstream{err: api.NewUpstreamError(500)}
	events := &stubEvents{}
	svc := NewService(upstream, events, &stubRollups{}, &stubPublisher{}, nil, 25, 0)

	_, err := svc.Generate(context.Background(), uuid.New(), testRequest())

	var appErr *api.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 502, appErr.Code)
	assert.Empty(t, events.inserted, "failed generations are not billed")
}

func TestGenerate_AccountingFailureIsNonFatal(t *testing.T) {
	upstream := &stubUpstream{resp: completionResponse("ok", 7)}
	events := &stubEvents{insertErr: errors.New("insert failed")}
	svc := NewService(upstream, events, &stubRollups{}, &stubPublisher{}, nil, 25, 0)

	resp, err := svc.Generate(context.Background(), uuid.New(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-test", resp.ID)
}

func TestGenerate_RollupFallbackWithoutPublisher(t *testing.T) {
	upstream := &stubUpstream{resp: completionResponse("ok", 7)}
	rollups := &stubRollups{}
	svc := NewService(upstream, &stubEvents{}, rollups, nil, nil, 25, 0)

	_, err := svc.Generate(context.Background(), uuid.New(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, 1, rollups.applied)
}

func TestGenerate_PublishFailureFallsBackToDirectRollup(t *testing.T) {
	upstream := &stubUpstream{resp: completionResponse("ok", 7)}
	rollups := &stubRollups{}
	publisher := &stubPublisher{err: errors.New("nats unavailable")}
	svc := NewService(upstream, &stubEvents{}, rollups, publisher, nil, 25, 0)

	_, err := svc.Generate(context.Background(), uuid.New(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, 1, rollups.applied)
}

func TestLastUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		messages []ChatMessage
		want     string
	}{
		{"single user turn", []ChatMessage{{Role: "user", Content: "write an intro"}}, "write an intro"},
		{
			"latest user turn wins",
			[]ChatMessage{
				{Role: "system", Content: "you are a writing assistant"},
				{Role: "user", Content: "first ask"},
				{Role: "assistant", Content: "draft"},
				{Role: "user", Content: "second ask"},
			},
			"second ask",
		},
		{"no user turn", []ChatMessage{{Role: "system", Content: "setup"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lastUserMessage(tt.messages))
		})
	}
}
