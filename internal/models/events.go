package models

import "time"

// Event types
const (
	EventTypeOrderSubmitted = "ORDER_SUBMITTED"
	EventTypeOrderApproved  = "ORDER_APPROVED"
	EventTypeOrderRejected  = "ORDER_REJECTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderSubmittedEvent published when a buyer completes checkout
type OrderSubmittedEvent struct {
	BaseEvent
	OrderNumber   int    `json:"order_number"`
	UserID        int64  `json:"user_id"`
	BookID        string `json:"book_id"`
	BookName      string `json:"book_name"`
	BookPrice     string `json:"book_price"`
	PaymentMethod string `json:"payment_method"`
}

// OrderModeratedEvent published when an operator decides a pending order
type OrderModeratedEvent struct {
	BaseEvent
	OrderNumber int         `json:"order_number"`
	UserID      int64       `json:"user_id"`
	Status      OrderStatus `json:"status"`
}
