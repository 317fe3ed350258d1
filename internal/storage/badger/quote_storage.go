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

// QuoteStorage implements the QuoteStorage interface for Badger
type QuoteStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewQuoteStorage creates a new QuoteStorage instance
func NewQuoteStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QuoteStorage {
	return &QuoteStorage{
		db:     db,
		logger: logger,
	}
}

func (s *QuoteStorage) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	var quote models.Quote
	if err := s.db.Store().Get(id, &quote); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("quote %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get quote %s: %w", id, err)
	}
	return &quote, nil
}

func (s *QuoteStorage) SaveQuote(ctx context.Context, quote *models.Quote) error {
	if quote.ID == "" {
		return fmt.Errorf("quote ID is required")
	}
	quote.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(quote.ID, quote); err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	return nil
}
