// Package gateway defines the adapter boundary to the external payment
// provider. The service layer only sees opaque results; protocol details
// (tokenization, 3-D Secure, provider handshakes) live behind Adapter
// implementations.
package gateway

import (
	"context"
	"fmt"
)

type ChargeRequest struct {
	TransactionID string
	AmountCents   int64
	CurrencyCode  string
	Method        string
}

type RefundRequest struct {
	TransactionID string
	AmountCents   int64
	CurrencyCode  string
	Reason        string
}

// Result is the opaque outcome of a gateway call. Payload is stored verbatim
// on the payment record.
type Result struct {
	Success bool
	Code    string
	Message string
	Payload map[string]any
}

type Adapter interface {
	Charge(ctx context.Context, req ChargeRequest) (Result, error)
	Refund(ctx context.Context, req RefundRequest) (Result, error)
}

// Error is a failure surfaced by the gateway adapter. Charge failures are
// captured into payment state rather than propagated to callers.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}
