package gateway

import (
	"context"
	"time"
)

// Sandbox approves every charge and refund. Used for local runs and tests;
// real deployments plug in a provider-specific Adapter.
type Sandbox struct {
	now func() time.Time
}

func NewSandbox() *Sandbox {
	return &Sandbox{now: time.Now}
}

func (s *Sandbox) Charge(ctx context.Context, req ChargeRequest) (Result, error) {
	return Result{
		Success: true,
		Code:    "approved",
		Payload: map[string]any{
			"provider":       "sandbox",
			"transaction_id": req.TransactionID,
			"amount_cents":   req.AmountCents,
			"currency":       req.CurrencyCode,
			"charged_at":     s.now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func (s *Sandbox) Refund(ctx context.Context, req RefundRequest) (Result, error) {
	return Result{
		Success: true,
		Code:    "refunded",
		Payload: map[string]any{
			"provider":       "sandbox",
			"transaction_id": req.TransactionID,
			"amount_cents":   req.AmountCents,
			"refunded_at":    s.now().UTC().Format(time.RFC3339),
		},
	}, nil
}
