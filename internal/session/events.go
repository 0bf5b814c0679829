package session

import (
	"context"
	"time"

	"github.com/diagnosis/roomstay/pkg/events"
	"github.com/diagnosis/roomstay/pkg/logger"
)

// PublishInvalidations forwards every invalidation to the event bus so other
// shells sharing the session backend can react.
func PublishInvalidations(s *Store, pub events.Publisher) (unsubscribe func()) {
	return s.OnInvalidate(func(n Notice) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		event := events.SessionInvalidatedEvent{
			UserID:        n.UserID,
			Reason:        string(n.Reason),
			InvalidatedAt: time.Now().UTC(),
		}
		if err := pub.Publish(ctx, events.SessionInvalidated, event); err != nil {
			logger.Error("Failed to publish session invalidated event", "error", err)
		}
	})
}
