package models

import "time"

// ApprovalResult is returned by a successful quote approval: the order and
// job the workflow created.
type ApprovalResult struct {
	Order *Order `json:"order"`
	Job   *Job   `json:"job"`
}

// WorkflowSegment summarizes one entity in the quote -> order -> job chain
type WorkflowSegment struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`
}

// WorkflowStatus is the read-back view of a quote's progression. Order and
// Job are nil until the corresponding entity exists.
type WorkflowStatus struct {
	Quote      *WorkflowSegment `json:"quote"`
	Order      *WorkflowSegment `json:"order"`
	Job        *WorkflowSegment `json:"job"`
	ApprovedAt *time.Time       `json:"approvedAt,omitempty"`
}
