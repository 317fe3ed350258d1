package models

import (
	"fmt"
	"time"
)

// QuoteStatus is the closed set of quote lifecycle states
type QuoteStatus string

const (
	QuoteStatusDraft        QuoteStatus = "draft"
	QuoteStatusSent         QuoteStatus = "sent"
	QuoteStatusApproved     QuoteStatus = "approved"
	QuoteStatusOrderCreated QuoteStatus = "order_created" // Terminal on the forward path
	QuoteStatusRejected     QuoteStatus = "rejected"
	QuoteStatusExpired      QuoteStatus = "expired"
)

// ParseQuoteStatus validates a raw status string against the closed set
func ParseQuoteStatus(s string) (QuoteStatus, error) {
	switch QuoteStatus(s) {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusApproved,
		QuoteStatusOrderCreated, QuoteStatusRejected, QuoteStatusExpired:
		return QuoteStatus(s), nil
	}
	return "", fmt.Errorf("unknown quote status: %q", s)
}

// IsTerminal reports whether no further workflow transition is allowed
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusOrderCreated || s == QuoteStatusRejected || s == QuoteStatusExpired
}

// LineItem is a single quoted/ordered line
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// Quote is a priced proposal owned by the sales surface. The workflow only
// ever transitions its status; it never creates or deletes quotes.
type Quote struct {
	ID          string      `json:"id" badgerhold:"key"`
	QuoteNumber string      `json:"quoteNumber"`
	Status      QuoteStatus `json:"status"`
	CustomerID  string      `json:"customerId"`
	Items       []LineItem  `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Notes       string      `json:"notes"`
	ApprovedAt  *time.Time  `json:"approvedAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
