package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/audit"
	"github.com/ternarybob/printflow/internal/common"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
)

// Factory derives new entities from their source entity and persists them,
// recording the one audit entry that documents each creation. Factories are
// callable standalone (queue re-drives) as well as from the orchestrator;
// they carry no dependency on the orchestrator's sequence.
type Factory struct {
	orders    interfaces.OrderStorage
	jobs      interfaces.JobStorage
	audit     *audit.Service
	logger    arbor.ILogger
	dueOffset time.Duration
	now       func() time.Time
}

// NewFactory creates an entity factory. dueOffset is added to the creation
// time to produce a job's due date.
func NewFactory(orders interfaces.OrderStorage, jobs interfaces.JobStorage, auditSvc *audit.Service, dueOffset time.Duration, logger arbor.ILogger) *Factory {
	if dueOffset <= 0 {
		dueOffset = 7 * 24 * time.Hour
	}
	return &Factory{
		orders:    orders,
		jobs:      jobs,
		audit:     auditSvc,
		logger:    logger,
		dueOffset: dueOffset,
		now:       time.Now,
	}
}

// CreateOrderFromQuote derives and persists a new pending order from a
// quote. The order number's random suffix is not checked for collisions.
func (f *Factory) CreateOrderFromQuote(ctx context.Context, quote *models.Quote) (*models.Order, error) {
	now := f.now()

	order := &models.Order{
		ID:          common.NewEntityID(),
		OrderNumber: common.NewOrderNumber(now),
		Status:      models.OrderStatusPending,
		QuoteID:     quote.ID,
		CustomerID:  quote.CustomerID,
		Items:       quote.Items,
		TotalAmount: quote.TotalAmount,
		Notes:       quote.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := f.orders.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order from quote %s: %w", quote.ID, err)
	}

	if err := f.audit.Record(ctx, &models.AuditEntry{
		Action:     models.AuditActionOrderCreated,
		EntityType: models.EntityTypeOrder,
		EntityID:   order.ID,
		NewStatus:  string(order.Status),
		Metadata: map[string]any{
			"quoteId":     quote.ID,
			"orderNumber": order.OrderNumber,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to audit order creation: %w", err)
	}

	f.logger.Info().
		Str("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("quote_id", quote.ID).
		Msg("Order created from quote")

	return order, nil
}

// CreateJobFromOrder derives and persists a new production job from an
// order. DueDate is creation time plus the configured offset, regardless of
// any customer-requested date.
func (f *Factory) CreateJobFromOrder(ctx context.Context, order *models.Order, quote *models.Quote) (*models.Job, error) {
	now := f.now()

	job := &models.Job{
		ID:              common.NewEntityID(),
		JobNumber:       common.NewJobNumber(now),
		Title:           fmt.Sprintf("Production for order %s", order.OrderNumber),
		Status:          models.JobStatusPendingArtwork,
		OrderID:         order.ID,
		QuoteID:         quote.ID,
		CustomerID:      order.CustomerID,
		DueDate:         now.Add(f.dueOffset),
		TotalAmount:     order.TotalAmount,
		ProductionNotes: order.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := f.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job from order %s: %w", order.ID, err)
	}

	if err := f.audit.Record(ctx, &models.AuditEntry{
		Action:     models.AuditActionJobCreated,
		EntityType: models.EntityTypeJob,
		EntityID:   job.ID,
		NewStatus:  string(job.Status),
		Metadata: map[string]any{
			"orderId":   order.ID,
			"quoteId":   quote.ID,
			"jobNumber": job.JobNumber,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to audit job creation: %w", err)
	}

	f.logger.Info().
		Str("job_id", job.ID).
		Str("job_number", job.JobNumber).
		Str("order_id", order.ID).
		Msg("Production job created from order")

	return job, nil
}
