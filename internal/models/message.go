package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrNoMessage is returned when the queue has no visible messages
var ErrNoMessage = errors.New("no messages in queue")

// MessageType is the closed set of queue job types. Anything outside this set
// fails at construction or at dispatch, never silently.
type MessageType string

const (
	MessageTypeQuoteApproved    MessageType = "quote_approved"
	MessageTypeCreateOrder      MessageType = "create_order"
	MessageTypeCreateJob        MessageType = "create_job"
	MessageTypeSendNotification MessageType = "send_notification"
)

// ParseMessageType validates a raw type string against the closed set
func ParseMessageType(s string) (MessageType, error) {
	switch MessageType(s) {
	case MessageTypeQuoteApproved, MessageTypeCreateOrder, MessageTypeCreateJob, MessageTypeSendNotification:
		return MessageType(s), nil
	}
	return "", fmt.Errorf("unknown message type: %q", s)
}

// Priority orders queue delivery. Notifications are delivered ahead of
// workflow-progression messages so user-visible email is never starved.
type Priority int

const (
	PriorityHigh   Priority = 0
	PriorityNormal Priority = 1
)

// QueueMessage is the immutable message stored in the queue. Attempts and
// VisibleAt are managed by the queue manager, not by producers.
type QueueMessage struct {
	ID          string          `json:"id"`
	Type        MessageType     `json:"type"`
	Priority    Priority        `json:"priority"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	VisibleAt   time.Time       `json:"visible_at"`
	LastError   string          `json:"last_error,omitempty"`
}

// QuoteApprovedPayload triggers the full approval workflow. ApprovalToken is
// opaque to the engine; it is carried for the audit trail only.
type QuoteApprovedPayload struct {
	QuoteID       string `json:"quoteId" validate:"required"`
	ApprovalToken string `json:"approvalToken,omitempty"`
}

// CreateOrderPayload re-drives order creation independently of the full flow
type CreateOrderPayload struct {
	QuoteID string `json:"quoteId" validate:"required"`
}

// CreateJobPayload re-drives job creation independently of the full flow
type CreateJobPayload struct {
	OrderID string `json:"orderId" validate:"required"`
	QuoteID string `json:"quoteId" validate:"required"`
}

// Notification channels for SendNotificationPayload
const (
	NotificationChannelEmail = "email"
	NotificationChannelRoom  = "room"
)

// SendNotificationPayload carries a deferred notification
type SendNotificationPayload struct {
	Channel string         `json:"channel" validate:"required,oneof=email room"`
	To      string         `json:"to,omitempty"`
	Subject string         `json:"subject,omitempty"`
	Room    string         `json:"room,omitempty"`
	Event   string         `json:"event,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

var payloadValidator = validator.New()

// NewQueueMessage builds a message for the given type, marshaling and
// validating the payload. Notification messages get high priority.
func NewQueueMessage(msgType MessageType, payload any) (*QueueMessage, error) {
	if _, err := ParseMessageType(string(msgType)); err != nil {
		return nil, err
	}

	if err := payloadValidator.Struct(payload); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", msgType, err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}

	priority := PriorityNormal
	if msgType == MessageTypeSendNotification {
		priority = PriorityHigh
	}

	now := time.Now()
	return &QueueMessage{
		ID:          uuid.New().String(),
		Type:        msgType,
		Priority:    priority,
		Payload:     data,
		Attempts:    0,
		MaxAttempts: 3,
		EnqueuedAt:  now,
		VisibleAt:   now,
	}, nil
}

// DecodePayload unmarshals the message payload into out and validates it
func (m *QueueMessage) DecodePayload(out any) error {
	if err := json.Unmarshal(m.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	if err := payloadValidator.Struct(out); err != nil {
		return fmt.Errorf("invalid %s payload: %w", m.Type, err)
	}
	return nil
}

// QueueStats is a point-in-time snapshot of true queue counts
type QueueStats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Delayed   int `json:"delayed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Result is the structured outcome a worker reports for a completed message
type Result struct {
	QuoteID string `json:"quoteId,omitempty"`
	OrderID string `json:"orderId,omitempty"`
	JobID   string `json:"jobId,omitempty"`
	Detail  string `json:"detail,omitempty"`
}
