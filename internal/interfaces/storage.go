package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/printflow/internal/models"
)

// ErrNotFound is returned by storage Get/Find operations when no entity
// matches. Callers distinguish it from transient persistence errors with
// errors.Is.
var ErrNotFound = errors.New("entity not found")

// QuoteStorage persists quotes. The workflow reads quotes and updates their
// status; quote creation belongs to the sales surface.
type QuoteStorage interface {
	GetQuote(ctx context.Context, id string) (*models.Quote, error)
	SaveQuote(ctx context.Context, quote *models.Quote) error
}

// OrderStorage persists orders created by the workflow
type OrderStorage interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	FindOrderByQuote(ctx context.Context, quoteID string) (*models.Order, error)
}

// JobStorage persists production jobs created by the workflow
type JobStorage interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	SaveJob(ctx context.Context, job *models.Job) error
	FindJobByOrder(ctx context.Context, orderID string) (*models.Job, error)
}

// CustomerStorage is read-only for the workflow
type CustomerStorage interface {
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	SaveCustomer(ctx context.Context, customer *models.Customer) error
}

// AuditStorage is append-only; entries are never updated or deleted
type AuditStorage interface {
	AppendEntry(ctx context.Context, entry *models.AuditEntry) error
	ListEntriesForEntity(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error)
}

// StorageManager aggregates the per-entity storage services
type StorageManager interface {
	QuoteStorage() QuoteStorage
	OrderStorage() OrderStorage
	JobStorage() JobStorage
	CustomerStorage() CustomerStorage
	AuditStorage() AuditStorage
	Close() error
}
