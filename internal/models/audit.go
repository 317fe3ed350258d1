package models

import "time"

// Audit actions recorded by the workflow
const (
	AuditActionQuoteApproved = "quote.approved"
	AuditActionOrderCreated  = "order.created"
	AuditActionJobCreated    = "job.created"
)

// Entity types referenced by audit entries
const (
	EntityTypeQuote = "quote"
	EntityTypeOrder = "order"
	EntityTypeJob   = "job"
)

// AuditEntry is an immutable record of a state-changing event on a tracked
// entity. Entries are append-only; ID and Timestamp are stamped at write
// time, never supplied by the caller.
type AuditEntry struct {
	ID         string         `json:"id" badgerhold:"key"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	OldStatus  string         `json:"old_status,omitempty"`
	NewStatus  string         `json:"new_status,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	UserName   string         `json:"user_name,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
