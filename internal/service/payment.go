package service

import (
	"context"

	"commerce-service/internal/gateway"
	"commerce-service/internal/models"

	"github.com/google/uuid"
)

type CreatePaymentInput struct {
	OrderID       uuid.UUID
	TransactionID string // generated and collision-checked when empty
	AmountCents   int64
	Currency      string
	Method        string
}

type PaymentService interface {
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*models.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)

	// ChargePayment invokes the gateway adapter. Adapter failures are
	// recovered into a failed payment with a scheduled retry, never
	// surfaced as an error.
	ChargePayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	// ConfirmPayment applies an out-of-band gateway result (webhook or
	// admin confirmation) identified by transaction id.
	ConfirmPayment(ctx context.Context, transactionID string, result gateway.Result) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus, gatewayResponse map[string]any, gatewayErr *string) (*models.Payment, error)

	RefundPayment(ctx context.Context, id uuid.UUID, amountCents int64, reason *string) (*models.Payment, error)
	RetryPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error

	ListDueRetries(ctx context.Context, limit int) ([]models.Payment, error)
}
