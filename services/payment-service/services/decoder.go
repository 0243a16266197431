package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
)

// totalTolerance is the allowed gap, in minor units, between the charged
// total and the total recomputed from the items.
const totalTolerance = 1

// DecodeError names the metadata field that made a checkout undecodable.
// A retry cannot fix it.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid checkout metadata: %s: %s", e.Field, e.Reason)
}

func decodeErr(field, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DecodeCheckout rebuilds a validated CheckoutEvent from a completed session.
// Every item must be complete and the charged total must match the items
// plus platform fees, which catches metadata truncated upstream.
func DecodeCheckout(sess *stripe.CheckoutSession, fees FeeSchedule) (*models.CheckoutEvent, error) {
	if sess == nil || sess.ID == "" {
		return nil, decodeErr("id", "missing session id")
	}
	md := sess.Metadata

	evt := &models.CheckoutEvent{
		SessionID:      sess.ID,
		Kind:           md[metaCheckoutType],
		UserID:         strings.TrimSpace(md[metaUserID]),
		ShippingMethod: md[metaShippingMethod],
		TotalAmount:    sess.AmountTotal,
		Currency:       strings.ToLower(string(sess.Currency)),
		PaymentSettled: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
	}
	if sess.PaymentIntent != nil {
		evt.PaymentReference = sess.PaymentIntent.ID
	}
	if sess.CustomerDetails != nil {
		evt.BuyerEmail = sess.CustomerDetails.Email
	}

	if evt.UserID == "" {
		return nil, decodeErr(metaUserID, "missing")
	}
	if evt.Currency == "" {
		return nil, decodeErr("currency", "missing")
	}

	addr, err := decodeAddress(md[metaShippingAddress])
	if err != nil {
		return nil, err
	}
	evt.ShippingAddress = addr

	switch evt.Kind {
	case models.CheckoutKindSingle:
		item, err := decodeItem(md, "", evt.Currency)
		if err != nil {
			return nil, err
		}
		evt.Items = []models.CheckoutLineItem{item}
	case models.CheckoutKindCart:
		items, err := decodeCartItems(md, evt.Currency)
		if err != nil {
			return nil, err
		}
		evt.Items = items
	case "":
		return nil, decodeErr(metaCheckoutType, "missing")
	default:
		return nil, decodeErr(metaCheckoutType, "unknown checkout type %q", evt.Kind)
	}

	expected := fees.ExpectedTotal(evt.Items)
	if diff := expected - evt.TotalAmount; diff > totalTolerance || diff < -totalTolerance {
		return nil, decodeErr("amount_total", "charged %d but items and fees add up to %d", evt.TotalAmount, expected)
	}
	return evt, nil
}

func decodeCartItems(md map[string]string, currency string) ([]models.CheckoutLineItem, error) {
	raw, ok := md[metaItemCount]
	if !ok {
		return nil, decodeErr(metaItemCount, "missing")
	}
	count, err := parseCount(raw)
	if err != nil {
		return nil, decodeErr(metaItemCount, "not an integer: %q", raw)
	}
	if count < 1 || count > MaxCartItems {
		return nil, decodeErr(metaItemCount, "must be between 1 and %d, got %d", MaxCartItems, count)
	}
	if _, extra := md[itemKey(int(count), fieldProductID)]; extra {
		return nil, decodeErr(metaItemCount, "declares %d items but more blocks are present", count)
	}

	items := make([]models.CheckoutLineItem, 0, count)
	for i := 0; i < int(count); i++ {
		item, err := decodeItem(md, itemPrefix(i), currency)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem(md map[string]string, prefix, currency string) (models.CheckoutLineItem, error) {
	var item models.CheckoutLineItem
	key := func(field string) string { return prefix + field }

	required := func(field string) (string, error) {
		v := strings.TrimSpace(md[key(field)])
		if v == "" {
			return "", decodeErr(key(field), "missing")
		}
		return v, nil
	}

	var err error
	if item.ProductID, err = required(fieldProductID); err != nil {
		return item, err
	}
	if item.VendorID, err = required(fieldVendorID); err != nil {
		return item, err
	}
	if item.ProductTitle, err = required(fieldProductTitle); err != nil {
		return item, err
	}
	item.ProductDescription = md[key(fieldProductDescription)]
	item.Notes = md[key(fieldNotes)]
	item.FabricChoice = md[key(fieldFabricChoice)]
	item.CartItemID = md[key(fieldCartItemID)]

	if raw := strings.TrimSpace(md[key(fieldMeasurementSessionID)]); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return item, decodeErr(key(fieldMeasurementSessionID), "not a uuid: %q", raw)
		}
		item.MeasurementSessionID = &id
	}

	rawQty, err := required(fieldQuantity)
	if err != nil {
		return item, err
	}
	if item.Quantity, err = parseCount(rawQty); err != nil {
		return item, decodeErr(key(fieldQuantity), "not an integer: %q", rawQty)
	}
	if item.Quantity < 1 {
		return item, decodeErr(key(fieldQuantity), "must be at least 1")
	}

	if item.UnitPrice, err = decodeAmount(md, key(fieldUnitPrice), currency); err != nil {
		return item, err
	}
	if item.Subtotal, err = decodeAmount(md, key(fieldSubtotal), currency); err != nil {
		return item, err
	}
	if item.UnitPrice > 0 && item.Quantity > math.MaxInt64/item.UnitPrice {
		return item, decodeErr(key(fieldSubtotal), "quantity x unit price overflows")
	}
	if item.Subtotal != item.Quantity*item.UnitPrice {
		return item, decodeErr(key(fieldSubtotal), "%d != %d x %d", item.Subtotal, item.Quantity, item.UnitPrice)
	}
	return item, nil
}

func decodeAmount(md map[string]string, key, currency string) (int64, error) {
	raw, ok := md[key]
	if !ok || raw == "" {
		return 0, decodeErr(key, "missing")
	}
	v, err := ParseMinorUnits(raw, currency)
	if err != nil {
		return 0, decodeErr(key, "%v", err)
	}
	return v, nil
}

func decodeAddress(raw string) (models.Address, error) {
	if raw == "" {
		return models.Address{}, decodeErr(metaShippingAddress, "missing")
	}
	var w wireAddress
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return models.Address{}, decodeErr(metaShippingAddress, "not valid JSON: %v", err)
	}

	addr := models.Address{
		Name:       strings.TrimSpace(w.Name),
		Street:     strings.TrimSpace(w.Street),
		City:       strings.TrimSpace(w.City),
		PostalCode: strings.TrimSpace(w.PostalCode),
		Country:    strings.TrimSpace(w.Country),
		Phone:      strings.TrimSpace(w.Phone),
	}
	if addr.PostalCode == "" {
		addr.PostalCode = strings.TrimSpace(w.Zip)
	}

	for _, f := range []struct{ name, value string }{
		{"name", addr.Name},
		{"street", addr.Street},
		{"city", addr.City},
		{"postalCode", addr.PostalCode},
		{"country", addr.Country},
	} {
		if f.value == "" {
			return models.Address{}, decodeErr(metaShippingAddress+"."+f.name, "missing")
		}
	}
	return addr, nil
}

// parseCount accepts plain decimal digits only: no sign, no leading zeros.
func parseCount(raw string) (int64, error) {
	if !isDigits(raw) || (len(raw) > 1 && raw[0] == '0') {
		return 0, fmt.Errorf("invalid count %q", raw)
	}
	return strconv.ParseInt(raw, 10, 64)
}

func itemPrefix(i int) string {
	return fmt.Sprintf("item_%d_", i)
}

func itemKey(i int, field string) string {
	return itemPrefix(i) + field
}
