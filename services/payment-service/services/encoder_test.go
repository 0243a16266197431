package services_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
)

func cartEvent(n int) *models.CheckoutEvent {
	evt := &models.CheckoutEvent{
		UserID:   "U1",
		Kind:     models.CheckoutKindCart,
		Currency: "usd",
		ShippingAddress: models.Address{
			Name: "Asha Rao", Street: "12 Loom Street", City: "Pune", PostalCode: "411001", Country: "IN", Phone: "+91 20 5555",
		},
		ShippingMethod: "express",
	}
	for i := 0; i < n; i++ {
		sid := uuid.New()
		evt.Items = append(evt.Items, models.CheckoutLineItem{
			ProductID:            fmt.Sprintf("P%d", i),
			VendorID:             fmt.Sprintf("V%d", i%2),
			ProductTitle:         "Kurta",
			ProductDescription:   "Handloom cotton",
			MeasurementSessionID: &sid,
			Quantity:             2,
			UnitPrice:            1999,
			Subtotal:             3998,
			Notes:                "longer sleeves",
			FabricChoice:         "indigo",
			CartItemID:           fmt.Sprintf("ci-%d", i),
		})
	}
	return evt
}

func TestEncodeCheckoutMetadata_DecodesBack(t *testing.T) {
	evt := cartEvent(services.MaxCartItems)

	md, err := services.EncodeCheckoutMetadata(evt)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(md), services.MaxMetadataKeys)
	assert.Equal(t, "19.99", md["item_0_unitPrice"])
	assert.Equal(t, "39.98", md["item_0_subtotal"])

	total := tenPercent.ExpectedTotal(evt.Items)
	decoded, err := services.DecodeCheckout(checkoutSession(md, total), tenPercent)
	require.NoError(t, err)
	assert.Equal(t, evt.Items, decoded.Items)
	assert.Equal(t, evt.ShippingAddress, decoded.ShippingAddress)
	assert.Equal(t, evt.ShippingMethod, decoded.ShippingMethod)
}

func TestEncodeCheckoutMetadata_OmitsEmptyOptionalFields(t *testing.T) {
	evt := cartEvent(1)
	evt.Items[0].Notes = ""
	evt.Items[0].MeasurementSessionID = nil

	md, err := services.EncodeCheckoutMetadata(evt)
	require.NoError(t, err)
	assert.NotContains(t, md, "item_0_notes")
	assert.NotContains(t, md, "item_0_measurementSessionId")
}

func TestEncodeCheckoutMetadata_Limits(t *testing.T) {
	_, err := services.EncodeCheckoutMetadata(cartEvent(services.MaxCartItems + 1))
	assert.Error(t, err)

	evt := cartEvent(1)
	evt.Items[0].Notes = strings.Repeat("n", services.MaxMetadataValueLen+1)
	_, err = services.EncodeCheckoutMetadata(evt)
	assert.Error(t, err)

	evt = cartEvent(1)
	evt.Items[0].ProductDescription = strings.Repeat("d", 2*services.MaxMetadataValueLen)
	md, err := services.EncodeCheckoutMetadata(evt)
	require.NoError(t, err)
	assert.Len(t, md["item_0_productDescription"], services.MaxMetadataValueLen)
}

func TestEncodeCheckoutMetadata_SingleNeedsOneItem(t *testing.T) {
	evt := cartEvent(2)
	evt.Kind = models.CheckoutKindSingle
	_, err := services.EncodeCheckoutMetadata(evt)
	assert.Error(t, err)

	evt = cartEvent(1)
	evt.Kind = models.CheckoutKindSingle
	evt.Items[0].CartItemID = ""
	md, err := services.EncodeCheckoutMetadata(evt)
	require.NoError(t, err)
	assert.Equal(t, "P0", md["productId"])
	assert.NotContains(t, md, "itemCount")
}
