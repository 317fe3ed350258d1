package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/common"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
)

// Service is the append-only audit trail over the content store. ID and
// Timestamp are stamped here, never taken from the caller.
type Service struct {
	storage interfaces.AuditStorage
	logger  arbor.ILogger
	now     func() time.Time
}

// NewService creates a new audit service
func NewService(storage interfaces.AuditStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Record appends an audit entry for a state-changing event
func (s *Service) Record(ctx context.Context, entry *models.AuditEntry) error {
	if entry.Action == "" {
		return fmt.Errorf("audit action is required")
	}
	if entry.EntityType == "" || entry.EntityID == "" {
		return fmt.Errorf("audit entity reference is required")
	}

	entry.ID = common.NewEntityID()
	entry.Timestamp = s.now()

	if err := s.storage.AppendEntry(ctx, entry); err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", entry.Action).
		Str("entity_type", entry.EntityType).
		Str("entity_id", entry.EntityID).
		Msg("Audit entry recorded")

	return nil
}

// ListForEntity returns the audit trail for one entity, oldest first
func (s *Service) ListForEntity(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error) {
	return s.storage.ListEntriesForEntity(ctx, entityType, entityID)
}
