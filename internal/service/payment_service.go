package service

import (
	"context"
	"fmt"
	"time"

	"commerce-service/internal/gateway"
	"commerce-service/internal/idgen"
	"commerce-service/internal/models"
	"commerce-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Retry backoff grows linearly, not exponentially: attempt N waits
	// N * retryInterval.
	retryInterval = 5 * time.Minute

	transactionIDAttempts = 5
)

type paymentService struct {
	repo    *repository.Repository
	adapter gateway.Adapter // nil disables gateway calls (bookkeeping only)
	events  EventBus        // nil disables publishing
	log     *zap.Logger
	now     func() time.Time
}

func NewPaymentService(repo *repository.Repository, adapter gateway.Adapter, events EventBus, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:    repo,
		adapter: adapter,
		events:  events,
		log:     log,
		now:     time.Now,
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*models.Payment, error) {
	if in.AmountCents <= 0 {
		return nil, ErrAmountInvalid
	}
	if len(in.Currency) != 3 {
		return nil, ErrCurrencyInvalid
	}

	ord, err := s.repo.Orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}

	txnID := in.TransactionID
	if txnID == "" {
		txnID, err = s.generateTransactionID(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		exists, err := s.repo.Payments.ExistsTransactionID(ctx, txnID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateTransaction
		}
	}

	method := in.Method
	if method == "" {
		method = "card"
	}

	now := s.now()
	payment := &models.Payment{
		OrderID:       in.OrderID,
		TransactionID: txnID,
		AmountCents:   in.AmountCents,
		CurrencyCode:  in.Currency,
		Method:        method,
		Status:        models.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Creating a payment makes it the order's current one; the mirror is
	// written in the same transaction.
	err = s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, _ repository.OrderItemRepo, pr repository.PaymentRepo) error {
		if err := pr.Create(ctx, payment); err != nil {
			return err
		}
		return or.Update(ctx, in.OrderID, map[string]any{
			"payment_status":         models.PaymentStatusPending,
			"payment_transaction_id": txnID,
		})
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// generateTransactionID draws fresh IDs until one is free. Collisions are
// extremely unlikely but are checked, not assumed away.
func (s *paymentService) generateTransactionID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < transactionIDAttempts; attempt++ {
		id, err := idgen.TransactionID(s.now())
		if err != nil {
			return "", err
		}
		exists, err := s.repo.Payments.ExistsTransactionID(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", ErrDuplicateTransaction
}

func (s *paymentService) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	p, err := s.repo.Payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

func (s *paymentService) ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	return s.repo.Payments.ListByOrder(ctx, orderID)
}

func (s *paymentService) ChargePayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	p, err := s.repo.Payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	if p.Status != models.PaymentStatusPending {
		return nil, ErrNotPending
	}

	p, err = s.applyStatus(ctx, p, models.PaymentStatusProcessing, nil, nil)
	if err != nil {
		return nil, err
	}

	if s.adapter == nil {
		return p, nil
	}

	res, err := s.adapter.Charge(ctx, gateway.ChargeRequest{
		TransactionID: p.TransactionID,
		AmountCents:   p.AmountCents,
		CurrencyCode:  p.CurrencyCode,
		Method:        p.Method,
	})
	if err != nil {
		// A hard gateway failure is captured into payment state and a retry
		// is scheduled; it is not propagated to the caller.
		return s.captureGatewayFailure(ctx, p, err)
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = res.Code
		}
		return s.applyStatus(ctx, p, models.PaymentStatusFailed, res.Payload, &msg)
	}
	return s.applyStatus(ctx, p, models.PaymentStatusCompleted, res.Payload, nil)
}

func (s *paymentService) captureGatewayFailure(ctx context.Context, p *models.Payment, gwErr error) (*models.Payment, error) {
	now := s.now()
	retryCount := p.RetryCount + 1
	nextRetry := now.Add(time.Duration(retryCount) * retryInterval)
	msg := gwErr.Error()

	s.log.Error("payment gateway charge failed",
		zap.String("payment_id", p.ID.String()),
		zap.String("transaction_id", p.TransactionID),
		zap.Int64("amount_cents", p.AmountCents),
		zap.Int32("retry_count", retryCount),
		zap.Time("next_retry_at", nextRetry),
		zap.Error(gwErr),
	)

	err := s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, _ repository.OrderItemRepo, pr repository.PaymentRepo) error {
		if err := pr.Update(ctx, p.ID, map[string]any{
			"status":        models.PaymentStatusFailed,
			"failed_at":     now,
			"gateway_error": msg,
			"retry_count":   retryCount,
			"next_retry_at": nextRetry,
		}); err != nil {
			return err
		}
		return or.Update(ctx, p.OrderID, map[string]any{
			"payment_status":         models.PaymentStatusFailed,
			"payment_transaction_id": p.TransactionID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishStatusChange(ctx, p, models.PaymentStatusFailed)
	return s.repo.Payments.GetByID(ctx, p.ID)
}

func (s *paymentService) ConfirmPayment(ctx context.Context, transactionID string, result gateway.Result) (*models.Payment, error) {
	p, err := s.repo.Payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}

	if result.Success {
		return s.UpdatePaymentStatus(ctx, p.ID, models.PaymentStatusCompleted, result.Payload, nil)
	}
	msg := result.Message
	if msg == "" {
		msg = result.Code
	}
	return s.UpdatePaymentStatus(ctx, p.ID, models.PaymentStatusFailed, result.Payload, &msg)
}

func (s *paymentService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus, gatewayResponse map[string]any, gatewayErr *string) (*models.Payment, error) {
	if !status.Valid() {
		return nil, ErrUnknownStatus
	}
	p, err := s.repo.Payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	return s.applyStatus(ctx, p, status, gatewayResponse, gatewayErr)
}

// applyStatus writes the payment transition and the order's denormalized
// mirror in one transaction. This is the single point where the two state
// machines share truth.
func (s *paymentService) applyStatus(ctx context.Context, p *models.Payment, status models.PaymentStatus, gatewayResponse map[string]any, gatewayErr *string) (*models.Payment, error) {
	// A completed or refunded payment never resurrects without an explicit
	// refund call.
	if p.Status == models.PaymentStatusRefunded && status != p.Status {
		return nil, ErrTerminalState
	}
	if p.Status == models.PaymentStatusCompleted &&
		status != models.PaymentStatusCompleted &&
		status != models.PaymentStatusRefunded &&
		status != models.PaymentStatusPartiallyRefunded {
		return nil, ErrTerminalState
	}

	updates := paymentStatusTransition(status, gatewayErr, s.now())
	if gatewayResponse != nil {
		updates["gateway_response"] = models.JSON(gatewayResponse)
	}

	err := s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, _ repository.OrderItemRepo, pr repository.PaymentRepo) error {
		if err := pr.Update(ctx, p.ID, updates); err != nil {
			return err
		}
		return or.Update(ctx, p.OrderID, map[string]any{
			"payment_status":         status,
			"payment_transaction_id": p.TransactionID,
		})
	})
	if err != nil {
		return nil, err
	}

	if status != p.Status {
		s.publishStatusChange(ctx, p, status)
	}
	return s.repo.Payments.GetByID(ctx, p.ID)
}

// paymentStatusTransition returns the derived column updates for a target
// payment state.
func paymentStatusTransition(status models.PaymentStatus, gatewayErr *string, now time.Time) map[string]any {
	updates := map[string]any{"status": status}
	switch status {
	case models.PaymentStatusCompleted:
		updates["processed_at"] = now
	case models.PaymentStatusFailed:
		updates["failed_at"] = now
		if gatewayErr != nil {
			updates["gateway_error"] = *gatewayErr
		}
	case models.PaymentStatusRefunded, models.PaymentStatusPartiallyRefunded:
		updates["refunded_at"] = now
	}
	return updates
}

func (s *paymentService) RefundPayment(ctx context.Context, id uuid.UUID, amountCents int64, reason *string) (*models.Payment, error) {
	if amountCents <= 0 {
		return nil, ErrAmountInvalid
	}

	p, err := s.repo.Payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	if p.Status != models.PaymentStatusCompleted && p.Status != models.PaymentStatusPartiallyRefunded {
		return nil, ErrNotRefundable
	}
	// The ceiling is checked before the gateway call so a rejected refund
	// never leaves partial state.
	if amountCents > p.RemainingAmountCents() {
		return nil, ErrRefundExceedsAmount
	}

	var payload map[string]any
	if s.adapter != nil {
		res, err := s.adapter.Refund(ctx, gateway.RefundRequest{
			TransactionID: p.TransactionID,
			AmountCents:   amountCents,
			CurrencyCode:  p.CurrencyCode,
			Reason:        strOrEmpty(reason),
		})
		if err != nil {
			return nil, fmt.Errorf("gateway refund failed: %w", err)
		}
		if !res.Success {
			return nil, &gateway.Error{Code: res.Code, Message: res.Message}
		}
		payload = res.Payload
	}

	now := s.now()
	newRefunded := p.RefundedAmountCents + amountCents
	status := models.PaymentStatusPartiallyRefunded
	if newRefunded == p.AmountCents {
		status = models.PaymentStatusRefunded
	}

	updates := map[string]any{
		"status":                status,
		"refunded_amount_cents": newRefunded,
		"refunded_at":           now,
	}
	if reason != nil {
		updates["refund_reason"] = *reason
	}
	if payload != nil {
		updates["gateway_response"] = models.JSON(payload)
	}

	err = s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, _ repository.OrderItemRepo, pr repository.PaymentRepo) error {
		if err := pr.Update(ctx, p.ID, updates); err != nil {
			return err
		}
		return or.Update(ctx, p.OrderID, map[string]any{
			"payment_status":         status,
			"payment_transaction_id": p.TransactionID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishStatusChange(ctx, p, status)
	if s.events != nil {
		payRef := p.ID
		_ = s.events.PublishRefundIssued(ctx, RefundIssuedEvent{
			OrderID:     p.OrderID,
			PaymentID:   &payRef,
			AmountCents: amountCents,
			Reason:      strOrEmpty(reason),
			IssuedAt:    now,
		})
	}

	return s.repo.Payments.GetByID(ctx, id)
}

func (s *paymentService) RetryPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	p, err := s.repo.Payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	if p.Status != models.PaymentStatusFailed {
		return nil, ErrRetryNotAllowed
	}

	now := s.now()
	retryCount := p.RetryCount + 1
	nextRetry := now.Add(time.Duration(retryCount) * retryInterval)

	err = s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, _ repository.OrderItemRepo, pr repository.PaymentRepo) error {
		if err := pr.Update(ctx, p.ID, map[string]any{
			"status":        models.PaymentStatusPending,
			"retry_count":   retryCount,
			"next_retry_at": nextRetry,
		}); err != nil {
			return err
		}
		return or.Update(ctx, p.OrderID, map[string]any{
			"payment_status":         models.PaymentStatusPending,
			"payment_transaction_id": p.TransactionID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishStatusChange(ctx, p, models.PaymentStatusPending)
	return s.repo.Payments.GetByID(ctx, id)
}

func (s *paymentService) DeletePayment(ctx context.Context, id uuid.UUID) error {
	return s.repo.Orders.WithTx(ctx, func(_ repository.OrderRepo, _ repository.OrderItemRepo, pr repository.PaymentRepo) error {
		p, err := pr.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrPaymentNotFound
		}
		if p.Status != models.PaymentStatusPending {
			return ErrNotPending
		}
		_, err = pr.Delete(ctx, id)
		return err
	})
}

func (s *paymentService) ListDueRetries(ctx context.Context, limit int) ([]models.Payment, error) {
	return s.repo.Payments.ListDueRetries(ctx, s.now(), limit)
}

func (s *paymentService) publishStatusChange(ctx context.Context, p *models.Payment, newStatus models.PaymentStatus) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishPaymentStatusChanged(ctx, PaymentStatusChangedEvent{
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		TransactionID: p.TransactionID,
		OldStatus:     p.Status,
		NewStatus:     newStatus,
		ChangedAt:     s.now(),
	})
}
