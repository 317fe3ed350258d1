package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/common"
	"github.com/ternarybob/printflow/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	quote    interfaces.QuoteStorage
	order    interfaces.OrderStorage
	job      interfaces.JobStorage
	customer interfaces.CustomerStorage
	audit    interfaces.AuditStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		quote:    NewQuoteStorage(db, logger),
		order:    NewOrderStorage(db, logger),
		job:      NewJobStorage(db, logger),
		customer: NewCustomerStorage(db, logger),
		audit:    NewAuditStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// DB returns the underlying connection, used to share the Badger instance
// with the queue manager.
func (m *Manager) DB() *BadgerDB {
	return m.db
}

// QuoteStorage returns the Quote storage interface
func (m *Manager) QuoteStorage() interfaces.QuoteStorage {
	return m.quote
}

// OrderStorage returns the Order storage interface
func (m *Manager) OrderStorage() interfaces.OrderStorage {
	return m.order
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// CustomerStorage returns the Customer storage interface
func (m *Manager) CustomerStorage() interfaces.CustomerStorage {
	return m.customer
}

// AuditStorage returns the AuditLog storage interface
func (m *Manager) AuditStorage() interfaces.AuditStorage {
	return m.audit
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
