package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service answers quota and usage queries for a single user.
type Service struct {
	events  EventStore
	rollups RollupStore
	limit   int
	now     func() time.Time
}

func NewService(events EventStore, rollups RollupStore, dailyLimit int) *Service {
	return &Service{
		events:  events,
		rollups: rollups,
		limit:   dailyLimit,
		now:     time.Now,
	}
}

// QuotaStatus reports how many generations the user has left today.
func (s *Service) QuotaStatus(ctx context.Context, userID uuid.UUID) (*QuotaStatus, error) {
	now := s.now()
	used, err := s.events.CountSince(ctx, userID, StartOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("fetching quota usage: %w", err)
	}

	remaining := s.limit - used
	if remaining < 0 {
		remaining = 0
	}

	return &QuotaStatus{
		Limit:     s.limit,
		Used:      used,
		Remaining: remaining,
		ResetsAt:  NextMidnight(now),
	}, nil
}

// ListRollups returns the user's monthly aggregates, newest first.
func (s *Service) ListRollups(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*UsageRollup, int, error) {
	rollups, total, err := s.rollups.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing rollups: %w", err)
	}
	return rollups, total, nil
}
