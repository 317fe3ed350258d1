package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CustomerStorage implements the CustomerStorage interface for Badger
type CustomerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCustomerStorage creates a new CustomerStorage instance
func NewCustomerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CustomerStorage {
	return &CustomerStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CustomerStorage) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.Store().Get(id, &customer); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("customer %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get customer %s: %w", id, err)
	}
	return &customer, nil
}

func (s *CustomerStorage) SaveCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.ID == "" {
		return fmt.Errorf("customer ID is required")
	}
	if err := s.db.Store().Upsert(customer.ID, customer); err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}
