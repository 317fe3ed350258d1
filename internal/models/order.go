package models

import (
	"fmt"
	"time"
)

// OrderStatus is the closed set of order lifecycle states. The workflow only
// ever writes OrderStatusPending; later transitions belong to fulfillment.
type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusInProduction OrderStatus = "in_production"
	OrderStatusComplete     OrderStatus = "complete"
	OrderStatusArchived     OrderStatus = "archived"
)

// ParseOrderStatus validates a raw status string against the closed set
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusInProduction, OrderStatusComplete, OrderStatusArchived:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("unknown order status: %q", s)
}

// Order is created by the workflow from an approved quote and owned by
// fulfillment from that point on.
type Order struct {
	ID          string      `json:"id" badgerhold:"key"`
	OrderNumber string      `json:"orderNumber"`
	Status      OrderStatus `json:"status"`
	QuoteID     string      `json:"quoteId"`
	CustomerID  string      `json:"customerId"`
	Items       []LineItem  `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Notes       string      `json:"notes"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
