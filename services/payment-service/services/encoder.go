package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
)

// EncodeCheckoutMetadata flattens a checkout into the metadata map that
// DecodeCheckout reads back. Empty optional fields are left out since Stripe
// treats an empty value as a deletion.
func EncodeCheckoutMetadata(evt *models.CheckoutEvent) (map[string]string, error) {
	if evt == nil || len(evt.Items) == 0 {
		return nil, fmt.Errorf("checkout has no items")
	}

	addr, err := json.Marshal(wireAddress{
		Name:       evt.ShippingAddress.Name,
		Street:     evt.ShippingAddress.Street,
		City:       evt.ShippingAddress.City,
		PostalCode: evt.ShippingAddress.PostalCode,
		Country:    evt.ShippingAddress.Country,
		Phone:      evt.ShippingAddress.Phone,
	})
	if err != nil {
		return nil, err
	}

	md := map[string]string{
		metaCheckoutType:    evt.Kind,
		metaUserID:          evt.UserID,
		metaShippingAddress: string(addr),
	}
	if evt.ShippingMethod != "" {
		md[metaShippingMethod] = evt.ShippingMethod
	}

	switch evt.Kind {
	case models.CheckoutKindSingle:
		if len(evt.Items) != 1 {
			return nil, fmt.Errorf("single checkout must have exactly one item, got %d", len(evt.Items))
		}
		encodeItem(md, "", evt.Items[0], evt.Currency)
	case models.CheckoutKindCart:
		if len(evt.Items) > MaxCartItems {
			return nil, fmt.Errorf("cart has %d items, at most %d fit in one checkout", len(evt.Items), MaxCartItems)
		}
		md[metaItemCount] = strconv.Itoa(len(evt.Items))
		for i, item := range evt.Items {
			encodeItem(md, itemPrefix(i), item, evt.Currency)
		}
	default:
		return nil, fmt.Errorf("unknown checkout type %q", evt.Kind)
	}

	if len(md) > MaxMetadataKeys {
		return nil, fmt.Errorf("metadata needs %d keys, limit is %d", len(md), MaxMetadataKeys)
	}
	for k, v := range md {
		if utf8.RuneCountInString(v) > MaxMetadataValueLen {
			return nil, fmt.Errorf("metadata value %s exceeds %d characters", k, MaxMetadataValueLen)
		}
	}
	return md, nil
}

func encodeItem(md map[string]string, prefix string, item models.CheckoutLineItem, currency string) {
	set := func(field, value string) {
		if value != "" {
			md[prefix+field] = value
		}
	}
	set(fieldProductID, item.ProductID)
	set(fieldVendorID, item.VendorID)
	set(fieldProductTitle, item.ProductTitle)
	set(fieldProductDescription, truncateRunes(item.ProductDescription, MaxMetadataValueLen))
	set(fieldQuantity, strconv.FormatInt(item.Quantity, 10))
	set(fieldUnitPrice, FormatMinorUnits(item.UnitPrice, currency))
	set(fieldSubtotal, FormatMinorUnits(item.Subtotal, currency))
	set(fieldNotes, item.Notes)
	set(fieldFabricChoice, item.FabricChoice)
	if item.MeasurementSessionID != nil {
		set(fieldMeasurementSessionID, item.MeasurementSessionID.String())
	}
	if prefix != "" {
		set(fieldCartItemID, item.CartItemID)
	}
}

// truncateRunes shortens descriptions only; they are display copy.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
