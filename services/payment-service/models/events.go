package models

import "time"

const (
	EventOrderCreated      = "order_created"
	EventVendorGroupFailed = "vendor_group_failed"
)

// OrderLineSummary is the per-item part of an order notification.
type OrderLineSummary struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// OrderCreatedEvent is published to SNS for the notification service.
type OrderCreatedEvent struct {
	EventType       string             `json:"event_type"`
	OrderID         string             `json:"order_id"`
	UserID          string             `json:"user_id"`
	VendorID        string             `json:"vendor_id"`
	Recipient       string             `json:"recipient,omitempty"`
	Items           []OrderLineSummary `json:"items"`
	TotalAmount     int64              `json:"total_amount"`
	TotalDisplay    string             `json:"total_display"`
	Currency        string             `json:"currency"`
	ShippingAddress Address            `json:"shipping_address"`
	Timestamp       time.Time          `json:"timestamp"`
}

// VendorGroupFailedEvent is queued for manual replay when one vendor's order
// could not be persisted.
type VendorGroupFailedEvent struct {
	EventType string    `json:"event_type"`
	EventID   string    `json:"event_id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	VendorID  string    `json:"vendor_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
