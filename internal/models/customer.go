package models

import "time"

// Customer is read-only for the workflow; its email (when present) drives
// whether an order confirmation is sent.
type Customer struct {
	ID        string    `json:"id" badgerhold:"key"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"createdAt"`
}
