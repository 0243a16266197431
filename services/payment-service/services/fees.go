package services

import (
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
)

// FeeSchedule is the marketplace's single platform fee rate. The fee is added
// on top of the vendor's subtotal: the buyer pays subtotal + fee and the
// vendor is owed the full subtotal.
type FeeSchedule struct {
	RateBps int64
}

// Split is the monetary breakdown of one vendor group, in minor units.
type Split struct {
	Subtotal      int64
	Fee           int64
	VendorPayable int64
	Total         int64
}

// Fee returns round(subtotal x rate), half-up.
func (f FeeSchedule) Fee(subtotal int64) int64 {
	rate := decimal.New(f.RateBps, -4)
	return decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()
}

func (f FeeSchedule) Split(subtotal int64) Split {
	fee := f.Fee(subtotal)
	return Split{
		Subtotal:      subtotal,
		Fee:           fee,
		VendorPayable: subtotal,
		Total:         subtotal + fee,
	}
}

// VendorGroup is the slice of a checkout that belongs to one vendor.
type VendorGroup struct {
	VendorID string
	Items    []models.CheckoutLineItem
}

func (g VendorGroup) Subtotal() int64 {
	var sum int64
	for _, it := range g.Items {
		sum += it.Subtotal
	}
	return sum
}

// GroupByVendor partitions items by vendor. Groups come out in the order each
// vendor first appears and items keep their relative order.
func GroupByVendor(items []models.CheckoutLineItem) []VendorGroup {
	index := make(map[string]int)
	var groups []VendorGroup
	for _, it := range items {
		i, ok := index[it.VendorID]
		if !ok {
			i = len(groups)
			index[it.VendorID] = i
			groups = append(groups, VendorGroup{VendorID: it.VendorID})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

// ExpectedTotal is what the buyer should have been charged for items: the sum
// over vendor groups of subtotal + fee. Fees are rounded per group, so this
// can differ from rounding the fee on the whole cart.
func (f FeeSchedule) ExpectedTotal(items []models.CheckoutLineItem) int64 {
	var total int64
	for _, g := range GroupByVendor(items) {
		total += f.Split(g.Subtotal()).Total
	}
	return total
}
