package service

import "commerce-service/internal/models"

// Totals are the monetary aggregates recomputed from an order's line items.
// Subtotal stays gross: refunded amounts accumulate in their own columns and
// do not reduce it.
type Totals struct {
	SubtotalCents    int64
	ItemsCount       int32
	WeightTotalGrams int64
}

// CalcTotals is a pure function over the current line items. It has no side
// effects and is always invoked explicitly after an item mutation, inside the
// same transaction.
func CalcTotals(items []models.OrderItem) Totals {
	var t Totals
	for i := range items {
		t.SubtotalCents += items[i].TotalPriceCents
		t.ItemsCount += items[i].Quantity
		t.WeightTotalGrams += items[i].WeightGrams * int64(items[i].Quantity)
	}
	return t
}

// LineTotalCents recomputes a line's total from its priced fields:
// unit*quantity - discount + tax.
func LineTotalCents(unitPriceCents int64, quantity int32, discountCents, taxCents int64) int64 {
	return unitPriceCents*int64(quantity) - discountCents + taxCents
}

// OrderTotalCents combines the item subtotal with the order's own
// adjustments: subtotal + tax + shipping - discount - coupon.
func OrderTotalCents(subtotalCents, taxCents, shippingCents, discountCents, couponDiscountCents int64) int64 {
	return subtotalCents + taxCents + shippingCents - discountCents - couponDiscountCents
}
