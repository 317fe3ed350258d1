package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AuditStorage implements the append-only AuditStorage interface for Badger.
// There is deliberately no update or delete surface.
type AuditStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAuditStorage creates a new AuditStorage instance
func NewAuditStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AuditStorage {
	return &AuditStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AuditStorage) AppendEntry(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("audit entry ID is required")
	}
	// Insert, not Upsert: entries are immutable once written
	if err := s.db.Store().Insert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *AuditStorage) ListEntriesForEntity(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	query := badgerhold.Where("EntityType").Eq(entityType).And("EntityID").Eq(entityID).SortBy("Timestamp")
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}
