package services

// Flat metadata keys written on a Stripe Checkout Session. Item fields are
// unprefixed for single checkouts and prefixed with item_{i}_ for carts.
const (
	metaCheckoutType    = "checkoutType"
	metaUserID          = "userId"
	metaShippingAddress = "shippingAddress"
	metaShippingMethod  = "shippingMethod"
	metaItemCount       = "itemCount"

	fieldProductID            = "productId"
	fieldVendorID             = "vendorId"
	fieldProductTitle         = "productTitle"
	fieldProductDescription   = "productDescription"
	fieldMeasurementSessionID = "measurementSessionId"
	fieldQuantity             = "quantity"
	fieldUnitPrice            = "unitPrice"
	fieldSubtotal             = "subtotal"
	fieldNotes                = "notes"
	fieldFabricChoice         = "fabricChoice"
	fieldCartItemID           = "cartItemId"
)

// Stripe metadata limits.
const (
	MaxMetadataKeys     = 50
	MaxMetadataValueLen = 500
)

// MaxCartItems is the largest cart that fits in one session's metadata with
// every optional item field present.
const MaxCartItems = 4

// wireAddress is the JSON carried in the shippingAddress value. Older clients
// send zip instead of postalCode.
type wireAddress struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	Zip        string `json:"zip,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}
