package analytics

import (
	"context"
	"time"

	"guildwatch/internal/storage"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

// Report summarizes moderation activity since a point in time: enforcement
// actions by kind, plus flag volume and review backlog.
type Report struct {
	ActionTotal    int
	ByAction       map[string]int
	FlagTotal      int
	FlagUnresolved int
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	byAction, err := s.store.CountModLogsByAction(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}
	flagTotal, flagUnresolved, err := s.store.FlagStats(ctx, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{ByAction: byAction, FlagTotal: flagTotal, FlagUnresolved: flagUnresolved}
	for _, count := range byAction {
		report.ActionTotal += count
	}
	return report, nil
}
