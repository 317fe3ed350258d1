package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/printflow/internal/models"
)

// QueueManager is a durable, at-least-once message queue with priority
// delivery and retry/backoff. The broker arbitrates which worker claims a
// message; no two workers hold the same message inside its visibility window.
type QueueManager interface {
	// Enqueue adds a message. Errors propagate synchronously to the caller
	// so a triggering action visibly fails rather than silently losing the
	// event.
	Enqueue(ctx context.Context, msg *models.QueueMessage) error

	// Receive claims the next visible message, highest priority first.
	// Returns models.ErrNoMessage when nothing is ready.
	Receive(ctx context.Context) (*models.QueueMessage, error)

	// Ack marks a claimed message as successfully processed and removes it
	// from the durable store.
	Ack(ctx context.Context, messageID string) error

	// Nack records a processing failure. The message is re-scheduled with
	// exponential backoff until its attempts are exhausted, then retained in
	// the failed set for inspection.
	Nack(ctx context.Context, messageID string, reason string) error

	// Stats returns true current counts, not cached values.
	Stats(ctx context.Context) (*models.QueueStats, error)

	// Stalled lists claimed messages whose visibility window has lapsed
	// without an ack; used by the maintenance sweep for observability only.
	Stalled(ctx context.Context, olderThan time.Duration) ([]models.QueueMessage, error)

	Close() error
}
