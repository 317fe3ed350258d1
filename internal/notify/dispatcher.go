package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/common"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
)

// ProductionTeamRoom is the realtime topic the production dashboard joins
const ProductionTeamRoom = "production-team"

// Dispatcher delivers human-facing notifications best-effort. Every public
// method returns a success boolean and never an error: delivery failure is
// logged here and must never fail the calling workflow.
type Dispatcher struct {
	mailer   interfaces.EmailSender
	config   common.NotificationConfig
	logger   arbor.ILogger
	mu       sync.RWMutex
	realtime interfaces.RealtimePublisher
}

// NewDispatcher creates a notification dispatcher. The realtime publisher
// may be nil; room events then report false without being an error.
func NewDispatcher(mailer interfaces.EmailSender, realtime interfaces.RealtimePublisher, config common.NotificationConfig, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		mailer:   mailer,
		realtime: realtime,
		config:   config,
		logger:   logger,
	}
}

// AttachRealtime attaches a realtime publisher after construction, for
// startup orders where the hub comes up later than the dispatcher.
func (d *Dispatcher) AttachRealtime(publisher interfaces.RealtimePublisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.realtime = publisher
}

// SendEmail attempts delivery and reports the outcome. Auth, network and
// address failures are logged with recipient context, never raised.
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, htmlBody string) bool {
	if to == "" {
		d.logger.Warn().Str("subject", subject).Msg("Email skipped: no recipient")
		return false
	}

	if err := d.mailer.Send(ctx, to, subject, htmlBody); err != nil {
		d.logger.Error().
			Err(err).
			Str("to", to).
			Str("subject", subject).
			Msg("Email delivery failed")
		return false
	}

	d.logger.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return true
}

// SendRoomEvent emits to a realtime room. Returns false when no realtime
// transport is attached; that is a valid degraded state, not an error.
func (d *Dispatcher) SendRoomEvent(room, event string, payload any) bool {
	d.mu.RLock()
	realtime := d.realtime
	d.mu.RUnlock()

	if realtime == nil {
		d.logger.Debug().Str("room", room).Str("event", event).Msg("Room event skipped: no realtime transport attached")
		return false
	}

	if err := realtime.Publish(room, event, payload); err != nil {
		d.logger.Error().
			Err(err).
			Str("room", room).
			Str("event", event).
			Msg("Room event delivery failed")
		return false
	}
	return true
}

// SendOrderConfirmationEmail emails the customer their order confirmation
func (d *Dispatcher) SendOrderConfirmationEmail(ctx context.Context, customer *models.Customer, order *models.Order) bool {
	subject := fmt.Sprintf("Order %s confirmed", order.OrderNumber)
	return d.SendEmail(ctx, customer.Email, subject, orderConfirmationHTML(customer, order))
}

// SendProductionNotificationEmail emails the production team about a new job
func (d *Dispatcher) SendProductionNotificationEmail(ctx context.Context, job *models.Job) bool {
	subject := fmt.Sprintf("New production job %s", job.JobNumber)
	return d.SendEmail(ctx, d.config.ProductionTeamEmail, subject, productionNotificationHTML(job))
}

// SendQuoteApprovedTicketEmail records the approval on the internal ticket
// trail via email to the production-team address.
func (d *Dispatcher) SendQuoteApprovedTicketEmail(ctx context.Context, quote *models.Quote, order *models.Order, approvedAt time.Time) bool {
	subject := fmt.Sprintf("Quote %s approved", quote.QuoteNumber)
	return d.SendEmail(ctx, d.config.ProductionTeamEmail, subject, quoteApprovedTicketHTML(quote, order, approvedAt))
}

// NotifyProductionTeam composes a realtime room broadcast and a team email.
// Both are attempted even if one fails; true means at least one landed.
func (d *Dispatcher) NotifyProductionTeam(ctx context.Context, jobNumber string, details map[string]any) bool {
	roomOK := d.SendRoomEvent(ProductionTeamRoom, "job_created", map[string]any{
		"jobNumber": jobNumber,
		"details":   details,
	})

	subject := fmt.Sprintf("New production job %s", jobNumber)
	body := productionTeamAlertHTML(jobNumber, details)
	emailOK := d.SendEmail(ctx, d.config.ProductionTeamEmail, subject, body)

	return roomOK || emailOK
}
