package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusConfirmed         OrderStatus = "confirmed"
	OrderStatusProcessing        OrderStatus = "processing"
	OrderStatusShipped           OrderStatus = "shipped"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
)

// Terminal reports whether no further status transition is allowed.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
		OrderStatusRefunded, OrderStatusPartiallyRefunded:
		return true
	}
	return false
}

type OrderItemStatus string

const (
	OrderItemStatusPending   OrderItemStatus = "pending"
	OrderItemStatusConfirmed OrderItemStatus = "confirmed"
	OrderItemStatusShipped   OrderItemStatus = "shipped"
	OrderItemStatusDelivered OrderItemStatus = "delivered"
	OrderItemStatusCancelled OrderItemStatus = "cancelled"
	OrderItemStatusRefunded  OrderItemStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusProcessing        PaymentStatus = "processing"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded,
		PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

// JSON is a jsonb column holding opaque payloads (address snapshots,
// gateway responses).
type JSON map[string]any

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported jsonb source type")
	}
	return json.Unmarshal(raw, j)
}

type Order struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber string      `gorm:"type:text;not null;uniqueIndex:ux_orders_number" json:"order_number"`
	UserID      *uuid.UUID  `gorm:"type:uuid;index" json:"user_id,omitempty"`
	GuestEmail  *string     `gorm:"type:text" json:"guest_email,omitempty"`
	Status      OrderStatus `gorm:"type:text;not null;default:'pending';index" json:"status"`

	SubtotalCents       int64  `gorm:"not null;default:0" json:"subtotal_cents"`
	TaxCents            int64  `gorm:"not null;default:0" json:"tax_cents"`
	ShippingCents       int64  `gorm:"not null;default:0" json:"shipping_cents"`
	DiscountCents       int64  `gorm:"not null;default:0" json:"discount_cents"`
	CouponDiscountCents int64  `gorm:"not null;default:0" json:"coupon_discount_cents"`
	TotalCents          int64  `gorm:"not null;default:0" json:"total_cents"`
	CurrencyCode        string `gorm:"type:char(3);not null" json:"currency_code"`

	// Denormalized mirror of the current payment, written by the payment
	// service in the same transaction as the payment status change.
	PaymentStatus        PaymentStatus `gorm:"type:text;not null;default:'pending'" json:"payment_status"`
	PaymentTransactionID *string       `gorm:"type:text" json:"payment_transaction_id,omitempty"`

	ItemsCount       int32 `gorm:"not null;default:0" json:"items_count"`
	WeightTotalGrams int64 `gorm:"not null;default:0" json:"weight_total_grams"`

	BillingAddress  JSON `gorm:"type:jsonb" json:"billing_address,omitempty"`
	ShippingAddress JSON `gorm:"type:jsonb" json:"shipping_address,omitempty"`

	AdminNotes   *string `gorm:"type:text" json:"admin_notes,omitempty"`
	CancelReason *string `gorm:"type:text" json:"cancel_reason,omitempty"`
	RefundReason *string `gorm:"type:text" json:"refund_reason,omitempty"`

	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`

	Items    []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payments []Payment   `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`

	// Snapshots taken at checkout; the product may change or disappear later.
	ProductName string `gorm:"type:text;not null" json:"product_name"`
	WeightGrams int64  `gorm:"not null;default:0" json:"weight_grams"`

	Quantity        int32 `gorm:"type:int;not null" json:"quantity"`
	UnitPriceCents  int64 `gorm:"not null" json:"unit_price_cents"`
	DiscountCents   int64 `gorm:"not null;default:0" json:"discount_cents"`
	TaxCents        int64 `gorm:"not null;default:0" json:"tax_cents"`
	TotalPriceCents int64 `gorm:"not null" json:"total_price_cents"`

	RefundedQuantity    int32   `gorm:"not null;default:0" json:"refunded_quantity"`
	RefundedAmountCents int64   `gorm:"not null;default:0" json:"refunded_amount_cents"`
	RefundReason        *string `gorm:"type:text" json:"refund_reason,omitempty"`

	Status OrderItemStatus `gorm:"type:text;not null;default:'pending'" json:"status"`

	RefundedAt *time.Time `json:"refunded_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (OrderItem) TableName() string { return "order_items" }

// RemainingQuantity is the refund ceiling still available on this line.
func (i *OrderItem) RemainingQuantity() int32 {
	return i.Quantity - i.RefundedQuantity
}

// RemainingAmountCents is the monetary refund ceiling still available.
func (i *OrderItem) RemainingAmountCents() int64 {
	return i.TotalPriceCents - i.RefundedAmountCents
}

type Payment struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	TransactionID string    `gorm:"type:text;not null;uniqueIndex:ux_payments_transaction" json:"transaction_id"`

	AmountCents  int64  `gorm:"not null" json:"amount_cents"`
	CurrencyCode string `gorm:"type:char(3);not null" json:"currency_code"`
	Method       string `gorm:"type:text;not null;default:'card'" json:"method"`

	Status PaymentStatus `gorm:"type:text;not null;default:'pending';index" json:"status"`

	GatewayResponse JSON    `gorm:"type:jsonb" json:"gateway_response,omitempty"`
	GatewayError    *string `gorm:"type:text" json:"gateway_error,omitempty"`

	RefundedAmountCents int64   `gorm:"not null;default:0" json:"refunded_amount_cents"`
	RefundReason        *string `gorm:"type:text" json:"refund_reason,omitempty"`

	RetryCount  int32      `gorm:"not null;default:0" json:"retry_count"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`

	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// RemainingAmountCents is the refund ceiling still available on this payment.
func (p *Payment) RemainingAmountCents() int64 {
	return p.AmountCents - p.RefundedAmountCents
}
