package interfaces

import (
	"context"

	"github.com/ternarybob/printflow/internal/models"
)

// EmailSender is the configured SMTP transport
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
	IsConfigured() bool
}

// RealtimePublisher emits events to a named room/topic. Implementations are
// optional at runtime; the dispatcher degrades gracefully when none is
// attached.
type RealtimePublisher interface {
	Publish(room, event string, payload any) error
}

// NotificationDispatcher is best-effort by contract: every method reports
// success/failure as a boolean and never returns an error, so callers need
// no error handling around notification calls for correctness.
type NotificationDispatcher interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) bool
	SendRoomEvent(room, event string, payload any) bool
	SendOrderConfirmationEmail(ctx context.Context, customer *models.Customer, order *models.Order) bool
	NotifyProductionTeam(ctx context.Context, jobNumber string, details map[string]any) bool
}
