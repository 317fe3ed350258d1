package models

import (
	"fmt"
	"time"
)

// JobStatus is the closed set of production job states. The workflow only
// ever writes JobStatusPendingArtwork.
type JobStatus string

const (
	JobStatusPendingArtwork JobStatus = "pending_artwork"
	JobStatusInProduction   JobStatus = "in_production"
	JobStatusComplete       JobStatus = "complete"
	JobStatusArchived       JobStatus = "archived"
)

// ParseJobStatus validates a raw status string against the closed set
func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobStatusPendingArtwork, JobStatusInProduction, JobStatusComplete, JobStatusArchived:
		return JobStatus(s), nil
	}
	return "", fmt.Errorf("unknown job status: %q", s)
}

// Job is the production work item derived from an order. DueDate defaults to
// creation time plus a fixed offset; it is not derived from any
// customer-requested date.
type Job struct {
	ID              string    `json:"id" badgerhold:"key"`
	JobNumber       string    `json:"jobNumber"`
	Title           string    `json:"title"`
	Status          JobStatus `json:"status"`
	OrderID         string    `json:"orderId"`
	QuoteID         string    `json:"quoteId"`
	CustomerID      string    `json:"customerId"`
	DueDate         time.Time `json:"dueDate"`
	TotalAmount     float64   `json:"totalAmount"`
	ProductionNotes string    `json:"productionNotes"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
