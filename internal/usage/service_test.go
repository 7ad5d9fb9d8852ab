package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventStore struct {
	count     int
	countErr  error
	lastSince time.Time
}

func (f *fakeEventStore) InsertEvent(_ context.Context, _ *GenerationEvent) error {
	return nil
}

func (f *fakeEventStore) CountSince(_ context.Context, _ uuid.UUID, since time.Time) (int, error) {
	f.lastSince = since
	return f.count, f.countErr
}

type fakeRollupStore struct {
	rollups []*UsageRollup
	total   int
}

func (f *fakeRollupStore) ApplyEvent(_ context.Context, _ uuid.UUID, _ time.Time, _, _ int) error {
	return nil
}

func (f *fakeRollupStore) ListByUser(_ context.Context, _ uuid.UUID, _, _ int) ([]*UsageRollup, int, error) {
	return f.rollups, f.total, nil
}

func TestQuotaStatus(t *testing.T) {
	now := time.Date(2025, time.April, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name          string
		used          int
		wantRemaining int
	}{
		{"untouched quota", 0, 25},
		{"one left", 24, 1},
		{"exactly at limit", 25, 0},
		{"over limit clamps to zero", 30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &fakeEventStore{count: tt.used}
			svc := NewService(events, &fakeRollupStore{}, 25)
			svc.now = func() time.Time { return now }

			status, err := svc.QuotaStatus(context.Background(), uuid.New())
			require.NoError(t, err)

			assert.Equal(t, 25, status.Limit)
			assert.Equal(t, tt.used, status.Used)
			assert.Equal(t, tt.wantRemaining, status.Remaining)
			assert.Equal(t, time.Date(2025, time.April, 11, 0, 0, 0, 0, time.UTC), status.ResetsAt)
			// Only today's events count against the ceiling.
			assert.Equal(t, time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC), events.lastSince)
		})
	}
}

func TestQuotaStatus_StoreError(t *testing.T) {
	events := &fakeEventStore{countErr: errors.New("connection refused")}
	svc := NewService(events, &fakeRollupStore{}, 25)

	_, err := svc.QuotaStatus(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestListRollups(t *testing.T) {
	userID := uuid.New()
	store := &fakeRollupStore{
		rollups: []*UsageRollup{
			{ID: uuid.New(), UserID: userID, GenerationCount: 12},
		},
		total: 1,
	}
	svc := NewService(&fakeEventStore{}, store, 25)

	rollups, total, err := svc.ListRollups(context.Background(), userID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rollups, 1)
	assert.Equal(t, 12, rollups[0].GenerationCount)
}
