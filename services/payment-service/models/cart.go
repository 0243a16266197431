package models

import "time"

// CartItem is a buyer's pending purchase. Price and vendor are snapshotted
// when the item is added.
type CartItem struct {
	ID                   string `json:"id"`
	ProductID            string `json:"product_id"`
	VendorID             string `json:"vendor_id"`
	Title                string `json:"title"`
	Description          string `json:"description,omitempty"`
	UnitPrice            int64  `json:"unit_price"`
	Quantity             int64  `json:"quantity"`
	Notes                string `json:"notes,omitempty"`
	FabricChoice         string `json:"fabric_choice,omitempty"`
	MeasurementSessionID string `json:"measurement_session_id,omitempty"`
}

type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}
