package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// OrderStorage implements the OrderStorage interface for Badger
type OrderStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewOrderStorage creates a new OrderStorage instance
func NewOrderStorage(db *BadgerDB, logger arbor.ILogger) interfaces.OrderStorage {
	return &OrderStorage{
		db:     db,
		logger: logger,
	}
}

func (s *OrderStorage) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.Store().Get(id, &order); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &order, nil
}

func (s *OrderStorage) SaveOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		return fmt.Errorf("order ID is required")
	}
	order.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(order.ID, order); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// FindOrderByQuote returns the order derived from the given quote, or
// ErrNotFound when the quote has not progressed yet.
func (s *OrderStorage) FindOrderByQuote(ctx context.Context, quoteID string) (*models.Order, error) {
	var orders []models.Order
	query := badgerhold.Where("QuoteID").Eq(quoteID).SortBy("CreatedAt").Limit(1)
	if err := s.db.Store().Find(&orders, query); err != nil {
		return nil, fmt.Errorf("failed to find order for quote %s: %w", quoteID, err)
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("order for quote %s: %w", quoteID, interfaces.ErrNotFound)
	}
	return &orders[0], nil
}
