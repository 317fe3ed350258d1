package worker

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
	"github.com/ternarybob/printflow/internal/workflow"
)

// QuoteApprovalWorker drives the full approval workflow for quote_approved
// messages.
type QuoteApprovalWorker struct {
	orchestrator *workflow.Orchestrator
	logger       arbor.ILogger
}

func NewQuoteApprovalWorker(orchestrator *workflow.Orchestrator, logger arbor.ILogger) *QuoteApprovalWorker {
	return &QuoteApprovalWorker{orchestrator: orchestrator, logger: logger}
}

func (w *QuoteApprovalWorker) Type() models.MessageType {
	return models.MessageTypeQuoteApproved
}

func (w *QuoteApprovalWorker) Handle(ctx context.Context, msg *models.QueueMessage) (*models.Result, error) {
	var payload models.QuoteApprovedPayload
	if err := msg.DecodePayload(&payload); err != nil {
		return nil, err
	}

	result, err := w.orchestrator.ProcessQuoteApproval(ctx, payload.QuoteID)
	if err != nil {
		return nil, err
	}

	return &models.Result{
		QuoteID: payload.QuoteID,
		OrderID: result.Order.ID,
		JobID:   result.Job.ID,
	}, nil
}

// CreateOrderWorker re-drives order creation independently of the full
// approval flow. Callers of this trusted internal re-drive guarantee
// non-duplication; no quote idempotency check runs here.
type CreateOrderWorker struct {
	quotes  interfaces.QuoteStorage
	factory *workflow.Factory
	logger  arbor.ILogger
}

func NewCreateOrderWorker(quotes interfaces.QuoteStorage, factory *workflow.Factory, logger arbor.ILogger) *CreateOrderWorker {
	return &CreateOrderWorker{quotes: quotes, factory: factory, logger: logger}
}

func (w *CreateOrderWorker) Type() models.MessageType {
	return models.MessageTypeCreateOrder
}

func (w *CreateOrderWorker) Handle(ctx context.Context, msg *models.QueueMessage) (*models.Result, error) {
	var payload models.CreateOrderPayload
	if err := msg.DecodePayload(&payload); err != nil {
		return nil, err
	}

	quote, err := w.quotes.GetQuote(ctx, payload.QuoteID)
	if err != nil {
		return nil, err
	}

	order, err := w.factory.CreateOrderFromQuote(ctx, quote)
	if err != nil {
		return nil, err
	}

	return &models.Result{
		QuoteID: quote.ID,
		OrderID: order.ID,
	}, nil
}

// CreateJobWorker re-drives production job creation from an existing order
type CreateJobWorker struct {
	orders  interfaces.OrderStorage
	quotes  interfaces.QuoteStorage
	factory *workflow.Factory
	logger  arbor.ILogger
}

func NewCreateJobWorker(orders interfaces.OrderStorage, quotes interfaces.QuoteStorage, factory *workflow.Factory, logger arbor.ILogger) *CreateJobWorker {
	return &CreateJobWorker{orders: orders, quotes: quotes, factory: factory, logger: logger}
}

func (w *CreateJobWorker) Type() models.MessageType {
	return models.MessageTypeCreateJob
}

func (w *CreateJobWorker) Handle(ctx context.Context, msg *models.QueueMessage) (*models.Result, error) {
	var payload models.CreateJobPayload
	if err := msg.DecodePayload(&payload); err != nil {
		return nil, err
	}

	order, err := w.orders.GetOrder(ctx, payload.OrderID)
	if err != nil {
		return nil, err
	}
	quote, err := w.quotes.GetQuote(ctx, payload.QuoteID)
	if err != nil {
		return nil, err
	}

	job, err := w.factory.CreateJobFromOrder(ctx, order, quote)
	if err != nil {
		return nil, err
	}

	return &models.Result{
		QuoteID: quote.ID,
		OrderID: order.ID,
		JobID:   job.ID,
	}, nil
}

// NotificationWorker delivers deferred notifications. The dispatcher is
// best-effort by contract and never errors, so this worker only fails on a
// malformed payload; delivery outcome is recorded in the result detail.
type NotificationWorker struct {
	dispatcher interfaces.NotificationDispatcher
	logger     arbor.ILogger
}

func NewNotificationWorker(dispatcher interfaces.NotificationDispatcher, logger arbor.ILogger) *NotificationWorker {
	return &NotificationWorker{dispatcher: dispatcher, logger: logger}
}

func (w *NotificationWorker) Type() models.MessageType {
	return models.MessageTypeSendNotification
}

func (w *NotificationWorker) Handle(ctx context.Context, msg *models.QueueMessage) (*models.Result, error) {
	var payload models.SendNotificationPayload
	if err := msg.DecodePayload(&payload); err != nil {
		return nil, err
	}

	var delivered bool
	switch payload.Channel {
	case models.NotificationChannelEmail:
		body, ok := payload.Data["html"].(string)
		if !ok {
			return nil, fmt.Errorf("email notification payload missing html body")
		}
		delivered = w.dispatcher.SendEmail(ctx, payload.To, payload.Subject, body)
	case models.NotificationChannelRoom:
		delivered = w.dispatcher.SendRoomEvent(payload.Room, payload.Event, payload.Data)
	default:
		return nil, fmt.Errorf("unknown notification channel: %s", payload.Channel)
	}

	return &models.Result{
		Detail: fmt.Sprintf("channel=%s delivered=%t", payload.Channel, delivered),
	}, nil
}
