package service

import (
	"context"

	"commerce-service/internal/models"

	"github.com/google/uuid"
)

type CreateOrderItem struct {
	ProductID      uuid.UUID
	ProductName    string
	Quantity       int32
	UnitPriceCents int64
	DiscountCents  int64
	TaxCents       int64
	WeightGrams    int64
}

type CreateOrderInput struct {
	OrderNumber string // generated when empty
	GuestEmail  string
	Currency    string

	TaxCents            int64
	ShippingCents       int64
	DiscountCents       int64
	CouponDiscountCents int64

	BillingAddress  map[string]any
	ShippingAddress map[string]any

	Items []CreateOrderItem
}

type UpdateOrderItemInput struct {
	Quantity       *int32
	UnitPriceCents *int64
	DiscountCents  *int64
	TaxCents       *int64
}

type ListFilter struct {
	UserID        *uuid.UUID
	Status        *models.OrderStatus
	PaymentStatus *models.PaymentStatus
	Limit         int
	Offset        int
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, notes *string) (*models.Order, error)
	RecalculateTotals(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	UpdateOrderItem(ctx context.Context, itemID uuid.UUID, in UpdateOrderItemInput) (*models.OrderItem, error)
	RefundOrderItem(ctx context.Context, itemID uuid.UUID, quantity int32, amountCents int64, reason *string) (*models.OrderItem, error)
	DeleteOrderItem(ctx context.Context, itemID uuid.UUID) error
}
