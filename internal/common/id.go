package common

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Document number prefixes for workflow-created entities
const (
	OrderNumberPrefix = "ORD"
	JobNumberPrefix   = "JOB"
)

// NewEntityID generates a unique entity ID
// Format: <uuid>
func NewEntityID() string {
	return uuid.New().String()
}

// NewDocumentNumber generates a human-readable document number.
// Format: <prefix>-YYMM-NNNN where NNNN is a zero-padded random suffix.
// The suffix is random, not sequential; collisions are accepted at current
// volume and are not checked against existing records.
func NewDocumentNumber(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%02d%02d-%04d", prefix, t.Year()%100, int(t.Month()), rand.Intn(10000))
}

// NewOrderNumber generates an order number for the current time
func NewOrderNumber(t time.Time) string {
	return NewDocumentNumber(OrderNumberPrefix, t)
}

// NewJobNumber generates a production job number for the current time
func NewJobNumber(t time.Time) string {
	return NewDocumentNumber(JobNumberPrefix, t)
}
