package service

import (
	"context"
	"time"

	"commerce-service/internal/models"

	"github.com/google/uuid"
)

type OrderCreatedEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	GuestEmail  string     `json:"guest_email,omitempty"`
	ItemsCount  int32      `json:"items_count"`
	TotalCents  int64      `json:"total_cents"`
	Currency    string     `json:"currency"`
	CreatedAt   time.Time  `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	OldStatus   models.OrderStatus `json:"old_status"`
	NewStatus   models.OrderStatus `json:"new_status"`
	Notes       string             `json:"notes,omitempty"`
	ChangedAt   time.Time          `json:"changed_at"`
}

type PaymentStatusChangedEvent struct {
	PaymentID     uuid.UUID            `json:"payment_id"`
	OrderID       uuid.UUID            `json:"order_id"`
	TransactionID string               `json:"transaction_id"`
	OldStatus     models.PaymentStatus `json:"old_status"`
	NewStatus     models.PaymentStatus `json:"new_status"`
	ChangedAt     time.Time            `json:"changed_at"`
}

type RefundIssuedEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	PaymentID   *uuid.UUID `json:"payment_id,omitempty"`
	OrderItemID *uuid.UUID `json:"order_item_id,omitempty"`
	Quantity    int32      `json:"quantity,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Reason      string     `json:"reason,omitempty"`
	IssuedAt    time.Time  `json:"issued_at"`
}

type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, e OrderStatusChangedEvent) error
	PublishPaymentStatusChanged(ctx context.Context, e PaymentStatusChangedEvent) error
	PublishRefundIssued(ctx context.Context, e RefundIssuedEvent) error
}
