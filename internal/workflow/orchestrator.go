package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/audit"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
)

// Orchestrator is the state machine advancing a quote through approval into
// a live order and production job. The sequence is a saga, not a database
// transaction: order -> job -> quote status update -> audit -> notify, where
// the quote status update is the commit point. A failure before the commit
// point leaves the quote retryable; the idempotency precondition makes
// retries after the commit point safe.
type Orchestrator struct {
	quotes     interfaces.QuoteStorage
	orders     interfaces.OrderStorage
	jobs       interfaces.JobStorage
	customers  interfaces.CustomerStorage
	factory    *Factory
	audit      *audit.Service
	dispatcher interfaces.NotificationDispatcher
	logger     arbor.ILogger
	now        func() time.Time
}

// NewOrchestrator creates a workflow orchestrator. All collaborators are
// injected; there is no module-level state.
func NewOrchestrator(
	storage interfaces.StorageManager,
	factory *Factory,
	auditSvc *audit.Service,
	dispatcher interfaces.NotificationDispatcher,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		quotes:     storage.QuoteStorage(),
		orders:     storage.OrderStorage(),
		jobs:       storage.JobStorage(),
		customers:  storage.CustomerStorage(),
		factory:    factory,
		audit:      auditSvc,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessQuoteApproval advances an approved quote into an order and a
// production job. At most one order is ever created per quote: a quote
// already in the order-created state fails with ErrQuoteAlreadyProcessed.
func (o *Orchestrator) ProcessQuoteApproval(ctx context.Context, quoteID string) (*models.ApprovalResult, error) {
	quote, err := o.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	if quote.Status == models.QuoteStatusOrderCreated {
		return nil, fmt.Errorf("quote %s: %w", quoteID, ErrQuoteAlreadyProcessed)
	}

	// Step 1: derive the order
	order, err := o.factory.CreateOrderFromQuote(ctx, quote)
	if err != nil {
		return nil, err
	}

	// Step 2: derive the job. On failure the quote status stays untouched so
	// a retry redoes the work without violating the at-most-once invariant.
	job, err := o.factory.CreateJobFromOrder(ctx, order, quote)
	if err != nil {
		return nil, err
	}

	// Step 3: commit point - flip the quote to its terminal forward state
	oldStatus := quote.Status
	approvedAt := o.now()
	quote.Status = models.QuoteStatusOrderCreated
	quote.ApprovedAt = &approvedAt
	if err := o.quotes.SaveQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to update quote %s status: %w", quoteID, err)
	}

	// Step 4: audit the quote transition, linking the created entities
	if err := o.audit.Record(ctx, &models.AuditEntry{
		Action:     models.AuditActionQuoteApproved,
		EntityType: models.EntityTypeQuote,
		EntityID:   quote.ID,
		OldStatus:  string(oldStatus),
		NewStatus:  string(quote.Status),
		Metadata: map[string]any{
			"orderId": order.ID,
			"jobId":   job.ID,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to audit quote approval: %w", err)
	}

	// Step 5: notifications are best-effort; nothing past the commit point
	// may fail the workflow.
	o.sendApprovalNotifications(ctx, quote, order, job)

	o.logger.Info().
		Str("quote_id", quote.ID).
		Str("order_id", order.ID).
		Str("job_id", job.ID).
		Msg("Quote approval workflow completed")

	return &models.ApprovalResult{Order: order, Job: job}, nil
}

// sendApprovalNotifications dispatches the customer confirmation and the
// production-team notification. The dispatcher never errors; failed customer
// lookups are logged and skipped.
func (o *Orchestrator) sendApprovalNotifications(ctx context.Context, quote *models.Quote, order *models.Order, job *models.Job) {
	if quote.CustomerID != "" {
		customer, err := o.customers.GetCustomer(ctx, quote.CustomerID)
		switch {
		case err != nil:
			o.logger.Warn().
				Err(err).
				Str("customer_id", quote.CustomerID).
				Msg("Customer lookup failed, skipping confirmation email")
		case customer.Email == "":
			o.logger.Debug().
				Str("customer_id", customer.ID).
				Msg("Customer has no email on file, skipping confirmation")
		default:
			o.dispatcher.SendOrderConfirmationEmail(ctx, customer, order)
		}
	}

	o.dispatcher.NotifyProductionTeam(ctx, job.JobNumber, map[string]any{
		"title":       job.Title,
		"orderNumber": order.OrderNumber,
		"dueDate":     job.DueDate.Format("2006-01-02"),
		"totalAmount": job.TotalAmount,
	})
}

// GetWorkflowStatus assembles the quote -> order -> job progression for
// read-back. Absent links yield nil segments, not errors.
func (o *Orchestrator) GetWorkflowStatus(ctx context.Context, quoteID string) (*models.WorkflowStatus, error) {
	quote, err := o.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	status := &models.WorkflowStatus{
		Quote: &models.WorkflowSegment{
			ID:     quote.ID,
			Number: quote.QuoteNumber,
			Status: string(quote.Status),
		},
		ApprovedAt: quote.ApprovedAt,
	}

	order, err := o.orders.FindOrderByQuote(ctx, quoteID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return status, nil
		}
		return nil, err
	}
	status.Order = &models.WorkflowSegment{
		ID:     order.ID,
		Number: order.OrderNumber,
		Status: string(order.Status),
	}

	job, err := o.jobs.FindJobByOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return status, nil
		}
		return nil, err
	}
	status.Job = &models.WorkflowSegment{
		ID:     job.ID,
		Number: job.JobNumber,
		Status: string(job.Status),
	}

	return status, nil
}
