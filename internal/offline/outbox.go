package offline

import (
	"context"
	"fmt"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

const (
	outboxBatchSize = 50
	outboxBaseDelay = 2 * time.Second
	outboxMaxDelay  = 5 * time.Minute
)

// ProcessOutbox delivers due registry intents, oldest first. A delivered
// intent is removed; a failed one is rescheduled with exponential backoff.
// Per-intent failures never abort the run. Returns the number delivered.
func (s *Service) ProcessOutbox(ctx context.Context) (int, error) {
	now := s.clock.Now()
	entries, err := s.outbox.Due(ctx, now, outboxBatchSize)
	if err != nil {
		return 0, fmt.Errorf("loading due intents: %w", err)
	}

	delivered := 0
	for _, entry := range entries {
		if err := s.deliver(ctx, entry); err != nil {
			attempts := entry.Attempts + 1
			next := now.Add(backoffDelay(attempts))
			s.logger.Warn("registry intent delivery failed", "action", entry.Action, "resource", entry.ResourceID, "attempts", attempts, "error", err)
			if err := s.outbox.Reschedule(ctx, entry.ID, attempts, next); err != nil {
				s.logger.Error("failed to reschedule intent", "id", entry.ID, "error", err)
			}
			continue
		}

		if err := s.outbox.DeleteIntent(ctx, entry.ID); err != nil {
			s.logger.Error("failed to remove delivered intent", "id", entry.ID, "error", err)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		s.logger.Info("registry intents delivered", "count", delivered)
	}
	return delivered, nil
}

// PendingIntents returns the number of undelivered registry intents.
func (s *Service) PendingIntents(ctx context.Context) (int, error) {
	return s.outbox.Pending(ctx)
}

func (s *Service) deliver(ctx context.Context, entry *model.OutboxEntry) error {
	switch entry.Action {
	case model.OutboxTrack:
		return s.registry.Track(ctx, &model.CacheStatusRecord{
			UserID:       s.opts.UserID,
			ResourceID:   entry.ResourceID,
			ResourceType: entry.ResourceType,
			TripID:       entry.TripID,
			CacheSize:    entry.CacheSize,
			CachedAt:     s.clock.Now(),
		})
	case model.OutboxUntrack:
		return s.registry.Untrack(ctx, s.opts.UserID, entry.ResourceID)
	default:
		return fmt.Errorf("unknown outbox action: %q", entry.Action)
	}
}

// backoffDelay doubles per attempt from the base delay, capped.
func backoffDelay(attempts int) time.Duration {
	d := outboxBaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= outboxMaxDelay {
			return outboxMaxDelay
		}
	}
	return d
}
