package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order status values. Orders start as paid, or as awaiting_payment when the
// buyer used an asynchronous payment method.
const (
	OrderStatusPaid            = "paid"
	OrderStatusAwaitingPayment = "awaiting_payment"
	OrderStatusPaymentFailed   = "payment_failed"
)

// Address is the shipping address snapshot stored with an order.
type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// MeasurementSnapshot is a by-value copy of a measurement session taken when
// the order was materialized.
type MeasurementSnapshot struct {
	SessionID  uuid.UUID          `json:"session_id"`
	Unit       string             `json:"unit"`
	Values     map[string]float64 `json:"values"`
	CapturedAt *time.Time         `json:"captured_at,omitempty"`
}

// Order is one vendor's share of a checkout. Amounts are minor currency units
// and TotalAmount == VendorPayable + PlatformFee always holds.
type Order struct {
	ID                   uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               string               `gorm:"type:varchar(128);not null;index" json:"user_id"`
	VendorID             string               `gorm:"type:varchar(128);not null;index;uniqueIndex:ux_orders_session_vendor,priority:2" json:"vendor_id"`
	Status               string               `gorm:"type:varchar(32);not null" json:"status"`
	StripeSessionID      string               `gorm:"type:varchar(255);not null;uniqueIndex:ux_orders_session_vendor,priority:1" json:"stripe_session_id"`
	PaymentReference     string               `gorm:"type:varchar(255);index" json:"payment_reference"`
	TotalAmount          int64                `gorm:"not null" json:"total_amount"`
	PlatformFee          int64                `gorm:"not null" json:"platform_fee"`
	VendorPayable        int64                `gorm:"not null" json:"vendor_payable"`
	Currency             string               `gorm:"type:varchar(10);not null" json:"currency"`
	ShippingAddress      Address              `gorm:"type:jsonb;serializer:json" json:"shipping_address"`
	ShippingMethod       string               `gorm:"type:varchar(64)" json:"shipping_method,omitempty"`
	MeasurementSessionID *uuid.UUID           `gorm:"type:uuid" json:"measurement_session_id,omitempty"`
	MeasurementSnapshot  *MeasurementSnapshot `gorm:"type:jsonb;serializer:json" json:"measurement_snapshot,omitempty"`
	PaidAt               *time.Time           `json:"paid_at,omitempty"`
	CreatedAt            time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
	Items                []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is a product snapshot; it never changes after creation.
type OrderItem struct {
	ID                   uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID              uuid.UUID            `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID            string               `gorm:"type:varchar(128);not null" json:"product_id"`
	ProductTitle         string               `gorm:"type:varchar(255);not null" json:"product_title"`
	ProductDescription   string               `gorm:"type:text" json:"product_description,omitempty"`
	Quantity             int64                `gorm:"not null" json:"quantity"`
	UnitPrice            int64                `gorm:"not null" json:"unit_price"`
	Subtotal             int64                `gorm:"not null" json:"subtotal"`
	Notes                string               `gorm:"type:text" json:"notes,omitempty"`
	FabricChoice         string               `gorm:"type:varchar(128)" json:"fabric_choice,omitempty"`
	MeasurementSessionID *uuid.UUID           `gorm:"type:uuid" json:"measurement_session_id,omitempty"`
	MeasurementSnapshot  *MeasurementSnapshot `gorm:"type:jsonb;serializer:json" json:"measurement_snapshot,omitempty"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
