package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/printflow/internal/audit"
	"github.com/ternarybob/printflow/internal/common"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
)

// In-memory storage fakes. Maps are keyed by entity ID; Find helpers scan.

type memQuoteStorage struct {
	quotes  map[string]models.Quote
	saveErr error
}

func (s *memQuoteStorage) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	quote, ok := s.quotes[id]
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", id, interfaces.ErrNotFound)
	}
	return &quote, nil
}

func (s *memQuoteStorage) SaveQuote(ctx context.Context, quote *models.Quote) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.quotes[quote.ID] = *quote
	return nil
}

type memOrderStorage struct {
	orders  map[string]models.Order
	saveErr error
}

func (s *memOrderStorage) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, interfaces.ErrNotFound)
	}
	return &order, nil
}

func (s *memOrderStorage) SaveOrder(ctx context.Context, order *models.Order) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.orders[order.ID] = *order
	return nil
}

func (s *memOrderStorage) FindOrderByQuote(ctx context.Context, quoteID string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.QuoteID == quoteID {
			found := order
			return &found, nil
		}
	}
	return nil, fmt.Errorf("order for quote %s: %w", quoteID, interfaces.ErrNotFound)
}

type memJobStorage struct {
	jobs    map[string]models.Job
	saveErr error
}

func (s *memJobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, interfaces.ErrNotFound)
	}
	return &job, nil
}

func (s *memJobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *memJobStorage) FindJobByOrder(ctx context.Context, orderID string) (*models.Job, error) {
	for _, job := range s.jobs {
		if job.OrderID == orderID {
			found := job
			return &found, nil
		}
	}
	return nil, fmt.Errorf("job for order %s: %w", orderID, interfaces.ErrNotFound)
}

type memCustomerStorage struct {
	customers map[string]models.Customer
}

func (s *memCustomerStorage) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	customer, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, interfaces.ErrNotFound)
	}
	return &customer, nil
}

func (s *memCustomerStorage) SaveCustomer(ctx context.Context, customer *models.Customer) error {
	s.customers[customer.ID] = *customer
	return nil
}

type memAuditStorage struct {
	entries []models.AuditEntry
}

func (s *memAuditStorage) AppendEntry(ctx context.Context, entry *models.AuditEntry) error {
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memAuditStorage) ListEntriesForEntity(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for _, entry := range s.entries {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type memStorageManager struct {
	quotes    *memQuoteStorage
	orders    *memOrderStorage
	jobs      *memJobStorage
	customers *memCustomerStorage
	auditlog  *memAuditStorage
}

func newMemStorageManager() *memStorageManager {
	return &memStorageManager{
		quotes:    &memQuoteStorage{quotes: make(map[string]models.Quote)},
		orders:    &memOrderStorage{orders: make(map[string]models.Order)},
		jobs:      &memJobStorage{jobs: make(map[string]models.Job)},
		customers: &memCustomerStorage{customers: make(map[string]models.Customer)},
		auditlog:  &memAuditStorage{},
	}
}

func (m *memStorageManager) QuoteStorage() interfaces.QuoteStorage       { return m.quotes }
func (m *memStorageManager) OrderStorage() interfaces.OrderStorage       { return m.orders }
func (m *memStorageManager) JobStorage() interfaces.JobStorage           { return m.jobs }
func (m *memStorageManager) CustomerStorage() interfaces.CustomerStorage { return m.customers }
func (m *memStorageManager) AuditStorage() interfaces.AuditStorage       { return m.auditlog }
func (m *memStorageManager) Close() error                                { return nil }

// fakeDispatcher records notification calls and returns a configurable
// outcome, exercising the never-fails dispatcher contract.
type fakeDispatcher struct {
	emails     []string
	roomEvents []string
	teamCalls  int
	succeed    bool
}

func (d *fakeDispatcher) SendEmail(ctx context.Context, to, subject, htmlBody string) bool {
	d.emails = append(d.emails, to)
	return d.succeed
}

func (d *fakeDispatcher) SendRoomEvent(room, event string, payload any) bool {
	d.roomEvents = append(d.roomEvents, event)
	return d.succeed
}

func (d *fakeDispatcher) SendOrderConfirmationEmail(ctx context.Context, customer *models.Customer, order *models.Order) bool {
	d.emails = append(d.emails, customer.Email)
	return d.succeed
}

func (d *fakeDispatcher) NotifyProductionTeam(ctx context.Context, jobNumber string, details map[string]any) bool {
	d.teamCalls++
	return d.succeed
}

func newTestOrchestrator(t *testing.T, storage *memStorageManager, dispatcher interfaces.NotificationDispatcher) *Orchestrator {
	t.Helper()
	logger := common.GetLogger()
	auditSvc := audit.NewService(storage.AuditStorage(), logger)
	factory := NewFactory(storage.OrderStorage(), storage.JobStorage(), auditSvc, 7*24*time.Hour, logger)
	return NewOrchestrator(storage, factory, auditSvc, dispatcher, logger)
}

func seedApprovedQuote(storage *memStorageManager) *models.Quote {
	quote := models.Quote{
		ID:          "quote-1001",
		QuoteNumber: "QTE-2603-0042",
		Status:      models.QuoteStatusApproved,
		CustomerID:  "cust-1",
		Items: []models.LineItem{
			{Description: "Business cards", Quantity: 500, UnitPrice: 0.12, Total: 60},
			{Description: "Letterheads", Quantity: 250, UnitPrice: 0.40, Total: 100},
		},
		TotalAmount: 160,
		Notes:       "Matte finish",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	storage.quotes.quotes[quote.ID] = quote
	storage.customers.customers["cust-1"] = models.Customer{
		ID:    "cust-1",
		Name:  "Acme Pty Ltd",
		Email: "orders@acme.example",
	}
	return &quote
}

func TestProcessQuoteApproval(t *testing.T) {
	storage := newMemStorageManager()
	dispatcher := &fakeDispatcher{succeed: true}
	orchestrator := newTestOrchestrator(t, storage, dispatcher)
	quote := seedApprovedQuote(storage)

	result, err := orchestrator.ProcessQuoteApproval(context.Background(), quote.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	require.NotNil(t, result.Job)

	// Order carries the quote's commercial content
	assert.Equal(t, quote.ID, result.Order.QuoteID)
	assert.Equal(t, quote.CustomerID, result.Order.CustomerID)
	assert.Equal(t, quote.TotalAmount, result.Order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, result.Order.Status)
	assert.Len(t, result.Order.Items, 2)

	// Job links back through the chain
	assert.Equal(t, result.Order.ID, result.Job.OrderID)
	assert.Equal(t, quote.ID, result.Job.QuoteID)
	assert.Equal(t, models.JobStatusPendingArtwork, result.Job.Status)
	assert.True(t, result.Job.DueDate.After(time.Now().Add(6*24*time.Hour)))

	// Commit point: quote is terminal with an approval timestamp
	saved, err := storage.quotes.GetQuote(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusOrderCreated, saved.Status)
	require.NotNil(t, saved.ApprovedAt)

	// One audit entry per state change: order.created, job.created, quote.approved
	require.Len(t, storage.auditlog.entries, 3)
	actions := []string{
		storage.auditlog.entries[0].Action,
		storage.auditlog.entries[1].Action,
		storage.auditlog.entries[2].Action,
	}
	assert.Equal(t, []string{models.AuditActionOrderCreated, models.AuditActionJobCreated, models.AuditActionQuoteApproved}, actions)
	for _, entry := range storage.auditlog.entries {
		assert.NotEmpty(t, entry.ID)
		assert.False(t, entry.Timestamp.IsZero())
	}

	// Each entry references the entity it documents
	orderEntry := storage.auditlog.entries[0]
	assert.Equal(t, models.EntityTypeOrder, orderEntry.EntityType)
	assert.Equal(t, result.Order.ID, orderEntry.EntityID)

	jobEntry := storage.auditlog.entries[1]
	assert.Equal(t, models.EntityTypeJob, jobEntry.EntityType)
	assert.Equal(t, result.Job.ID, jobEntry.EntityID)

	// The quote transition records the status change and links both
	// created entities
	quoteEntry := storage.auditlog.entries[2]
	assert.Equal(t, models.EntityTypeQuote, quoteEntry.EntityType)
	assert.Equal(t, quote.ID, quoteEntry.EntityID)
	assert.Equal(t, string(models.QuoteStatusApproved), quoteEntry.OldStatus)
	assert.Equal(t, string(models.QuoteStatusOrderCreated), quoteEntry.NewStatus)
	assert.Equal(t, result.Order.ID, quoteEntry.Metadata["orderId"])
	assert.Equal(t, result.Job.ID, quoteEntry.Metadata["jobId"])

	// Customer email and production team notification both went out
	assert.Equal(t, []string{"orders@acme.example"}, dispatcher.emails)
	assert.Equal(t, 1, dispatcher.teamCalls)
}

func TestProcessQuoteApproval_AtMostOnce(t *testing.T) {
	storage := newMemStorageManager()
	orchestrator := newTestOrchestrator(t, storage, &fakeDispatcher{succeed: true})
	quote := seedApprovedQuote(storage)

	_, err := orchestrator.ProcessQuoteApproval(context.Background(), quote.ID)
	require.NoError(t, err)

	// A redelivered approval must not create a second order
	_, err = orchestrator.ProcessQuoteApproval(context.Background(), quote.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuoteAlreadyProcessed)
	assert.Len(t, storage.orders.orders, 1)
	assert.Len(t, storage.jobs.jobs, 1)
}

func TestProcessQuoteApproval_UnknownQuote(t *testing.T) {
	storage := newMemStorageManager()
	orchestrator := newTestOrchestrator(t, storage, &fakeDispatcher{succeed: true})

	_, err := orchestrator.ProcessQuoteApproval(context.Background(), "quote-missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestProcessQuoteApproval_JobFailureLeavesQuoteRetryable(t *testing.T) {
	storage := newMemStorageManager()
	orchestrator := newTestOrchestrator(t, storage, &fakeDispatcher{succeed: true})
	quote := seedApprovedQuote(storage)

	storage.jobs.saveErr = errors.New("disk full")

	_, err := orchestrator.ProcessQuoteApproval(context.Background(), quote.ID)
	require.Error(t, err)

	// Failure before the commit point: quote status untouched so a retry
	// can redo the work
	saved, err := storage.quotes.GetQuote(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusApproved, saved.Status)
	assert.Nil(t, saved.ApprovedAt)

	// And the retry succeeds once the fault clears
	storage.jobs.saveErr = nil
	result, err := orchestrator.ProcessQuoteApproval(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.NotNil(t, result.Job)
}

func TestProcessQuoteApproval_NotificationFailureDoesNotFailWorkflow(t *testing.T) {
	storage := newMemStorageManager()
	dispatcher := &fakeDispatcher{succeed: false}
	orchestrator := newTestOrchestrator(t, storage, dispatcher)
	quote := seedApprovedQuote(storage)

	result, err := orchestrator.ProcessQuoteApproval(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.NotNil(t, result.Order)

	saved, err := storage.quotes.GetQuote(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusOrderCreated, saved.Status)
}

func TestProcessQuoteApproval_MissingCustomerSkipsEmail(t *testing.T) {
	storage := newMemStorageManager()
	dispatcher := &fakeDispatcher{succeed: true}
	orchestrator := newTestOrchestrator(t, storage, dispatcher)
	quote := seedApprovedQuote(storage)
	delete(storage.customers.customers, quote.CustomerID)

	_, err := orchestrator.ProcessQuoteApproval(context.Background(), quote.ID)
	require.NoError(t, err)

	assert.Empty(t, dispatcher.emails)
	assert.Equal(t, 1, dispatcher.teamCalls)
}

func TestGetWorkflowStatus(t *testing.T) {
	storage := newMemStorageManager()
	orchestrator := newTestOrchestrator(t, storage, &fakeDispatcher{succeed: true})
	quote := seedApprovedQuote(storage)

	// Before approval: quote segment only
	status, err := orchestrator.GetWorkflowStatus(context.Background(), quote.ID)
	require.NoError(t, err)
	require.NotNil(t, status.Quote)
	assert.Equal(t, string(models.QuoteStatusApproved), status.Quote.Status)
	assert.Nil(t, status.Order)
	assert.Nil(t, status.Job)

	_, err = orchestrator.ProcessQuoteApproval(context.Background(), quote.ID)
	require.NoError(t, err)

	// After approval: full chain
	status, err = orchestrator.GetWorkflowStatus(context.Background(), quote.ID)
	require.NoError(t, err)
	require.NotNil(t, status.Order)
	require.NotNil(t, status.Job)
	assert.Equal(t, string(models.OrderStatusPending), status.Order.Status)
	assert.Equal(t, string(models.JobStatusPendingArtwork), status.Job.Status)
	assert.NotNil(t, status.ApprovedAt)
}

func TestGetWorkflowStatus_UnknownQuote(t *testing.T) {
	storage := newMemStorageManager()
	orchestrator := newTestOrchestrator(t, storage, &fakeDispatcher{succeed: true})

	_, err := orchestrator.GetWorkflowStatus(context.Background(), "quote-missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}
