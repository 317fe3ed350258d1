package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/printflow/internal/common"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
)

func newTestStorageManager(t *testing.T) *Manager {
	t.Helper()

	manager, err := NewManager(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestQuoteStorage_RoundTrip(t *testing.T) {
	manager := newTestStorageManager(t)
	ctx := context.Background()

	quote := &models.Quote{
		ID:          "quote-1",
		QuoteNumber: "QTE-2603-0042",
		Status:      models.QuoteStatusApproved,
		CustomerID:  "cust-1",
		Items: []models.LineItem{
			{Description: "Business cards", Quantity: 500, UnitPrice: 0.12, Total: 60},
		},
		TotalAmount: 60,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, manager.QuoteStorage().SaveQuote(ctx, quote))

	loaded, err := manager.QuoteStorage().GetQuote(ctx, "quote-1")
	require.NoError(t, err)
	assert.Equal(t, quote.QuoteNumber, loaded.QuoteNumber)
	assert.Equal(t, quote.Status, loaded.Status)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Business cards", loaded.Items[0].Description)

	// Save is an upsert: status updates overwrite in place
	loaded.Status = models.QuoteStatusOrderCreated
	require.NoError(t, manager.QuoteStorage().SaveQuote(ctx, loaded))

	updated, err := manager.QuoteStorage().GetQuote(ctx, "quote-1")
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusOrderCreated, updated.Status)
}

func TestQuoteStorage_NotFound(t *testing.T) {
	manager := newTestStorageManager(t)

	_, err := manager.QuoteStorage().GetQuote(context.Background(), "quote-missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestOrderStorage_FindOrderByQuote(t *testing.T) {
	manager := newTestStorageManager(t)
	ctx := context.Background()

	order := &models.Order{
		ID:          "order-1",
		OrderNumber: "ORD-2603-0001",
		Status:      models.OrderStatusPending,
		QuoteID:     "quote-1",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, manager.OrderStorage().SaveOrder(ctx, order))

	found, err := manager.OrderStorage().FindOrderByQuote(ctx, "quote-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", found.ID)

	_, err = manager.OrderStorage().FindOrderByQuote(ctx, "quote-2")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestJobStorage_FindJobByOrder(t *testing.T) {
	manager := newTestStorageManager(t)
	ctx := context.Background()

	job := &models.Job{
		ID:        "job-1",
		JobNumber: "JOB-2603-0001",
		Status:    models.JobStatusPendingArtwork,
		OrderID:   "order-1",
		QuoteID:   "quote-1",
		DueDate:   time.Now().Add(7 * 24 * time.Hour),
		CreatedAt: time.Now(),
	}
	require.NoError(t, manager.JobStorage().SaveJob(ctx, job))

	found, err := manager.JobStorage().FindJobByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", found.ID)

	_, err = manager.JobStorage().FindJobByOrder(ctx, "order-2")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestAuditStorage_AppendAndListOrdered(t *testing.T) {
	manager := newTestStorageManager(t)
	ctx := context.Background()

	base := time.Now()
	for i, action := range []string{models.AuditActionOrderCreated, models.AuditActionJobCreated} {
		entry := &models.AuditEntry{
			ID:         common.NewEntityID(),
			Action:     action,
			EntityType: models.EntityTypeOrder,
			EntityID:   "order-1",
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, manager.AuditStorage().AppendEntry(ctx, entry))
	}

	// Entry for another entity must not leak into the listing
	require.NoError(t, manager.AuditStorage().AppendEntry(ctx, &models.AuditEntry{
		ID:         common.NewEntityID(),
		Action:     models.AuditActionQuoteApproved,
		EntityType: models.EntityTypeQuote,
		EntityID:   "quote-1",
		Timestamp:  base,
	}))

	entries, err := manager.AuditStorage().ListEntriesForEntity(ctx, models.EntityTypeOrder, "order-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.AuditActionOrderCreated, entries[0].Action)
	assert.Equal(t, models.AuditActionJobCreated, entries[1].Action)
}

func TestCustomerStorage_RoundTrip(t *testing.T) {
	manager := newTestStorageManager(t)
	ctx := context.Background()

	customer := &models.Customer{ID: "cust-1", Name: "Acme Pty Ltd", Email: "orders@acme.example"}
	require.NoError(t, manager.CustomerStorage().SaveCustomer(ctx, customer))

	loaded, err := manager.CustomerStorage().GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Pty Ltd", loaded.Name)
}
