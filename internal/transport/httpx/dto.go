package httpx

import (
	"commerce-service/internal/service"

	"github.com/google/uuid"
)

type createOrderItemRequest struct {
	ProductID      string `json:"product_id" binding:"required,uuid"`
	ProductName    string `json:"product_name" binding:"required"`
	Quantity       int32  `json:"quantity" binding:"required,gt=0"`
	UnitPriceCents int64  `json:"unit_price_cents" binding:"gte=0"`
	DiscountCents  int64  `json:"discount_cents" binding:"gte=0"`
	TaxCents       int64  `json:"tax_cents" binding:"gte=0"`
	WeightGrams    int64  `json:"weight_grams" binding:"gte=0"`
}

type createOrderRequest struct {
	OrderNumber string `json:"order_number"`
	GuestEmail  string `json:"guest_email" binding:"omitempty,email"`
	Currency    string `json:"currency" binding:"required,len=3"`

	TaxCents            int64 `json:"tax_cents" binding:"gte=0"`
	ShippingCents       int64 `json:"shipping_cents" binding:"gte=0"`
	DiscountCents       int64 `json:"discount_cents" binding:"gte=0"`
	CouponDiscountCents int64 `json:"coupon_discount_cents" binding:"gte=0"`

	BillingAddress  map[string]any `json:"billing_address"`
	ShippingAddress map[string]any `json:"shipping_address"`

	Items []createOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (r createOrderRequest) toInput() (service.CreateOrderInput, error) {
	in := service.CreateOrderInput{
		OrderNumber:         r.OrderNumber,
		GuestEmail:          r.GuestEmail,
		Currency:            r.Currency,
		TaxCents:            r.TaxCents,
		ShippingCents:       r.ShippingCents,
		DiscountCents:       r.DiscountCents,
		CouponDiscountCents: r.CouponDiscountCents,
		BillingAddress:      r.BillingAddress,
		ShippingAddress:     r.ShippingAddress,
	}
	for _, it := range r.Items {
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			return in, err
		}
		in.Items = append(in.Items, service.CreateOrderItem{
			ProductID:      pid,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			DiscountCents:  it.DiscountCents,
			TaxCents:       it.TaxCents,
			WeightGrams:    it.WeightGrams,
		})
	}
	return in, nil
}

type updateOrderStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

type updateOrderItemRequest struct {
	Quantity       *int32 `json:"quantity" binding:"omitempty,gt=0"`
	UnitPriceCents *int64 `json:"unit_price_cents" binding:"omitempty,gte=0"`
	DiscountCents  *int64 `json:"discount_cents" binding:"omitempty,gte=0"`
	TaxCents       *int64 `json:"tax_cents" binding:"omitempty,gte=0"`
}

type refundOrderItemRequest struct {
	Quantity    int32   `json:"quantity" binding:"required,gt=0"`
	AmountCents int64   `json:"amount_cents" binding:"required,gt=0"`
	Reason      *string `json:"reason"`
}

type createPaymentRequest struct {
	OrderID       string `json:"order_id" binding:"required,uuid"`
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency      string `json:"currency" binding:"required,len=3"`
	Method        string `json:"method"`
}

type confirmPaymentRequest struct {
	TransactionID string         `json:"transaction_id" binding:"required"`
	Success       bool           `json:"success"`
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	Payload       map[string]any `json:"payload"`
}

type refundPaymentRequest struct {
	AmountCents int64   `json:"amount_cents" binding:"required,gt=0"`
	Reason      *string `json:"reason"`
}
