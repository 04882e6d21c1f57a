package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"commerce-service/internal/gateway"
	"commerce-service/internal/models"
	"commerce-service/internal/repository"
	"commerce-service/internal/service"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is a shared in-memory backing for the fake repositories. WithTx
// runs the callback against the same store; service-level tests only need
// transaction scoping, not rollback.
type memStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*models.Order
	numbers  map[string]uuid.UUID
	items    map[uuid.UUID]*models.OrderItem
	itemSeq  []uuid.UUID
	payments map[uuid.UUID]*models.Payment
	txnIDs   map[string]uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		orders:   map[uuid.UUID]*models.Order{},
		numbers:  map[string]uuid.UUID{},
		items:    map[uuid.UUID]*models.OrderItem{},
		payments: map[uuid.UUID]*models.Payment{},
		txnIDs:   map[string]uuid.UUID{},
	}
}

func newMemRepository() (*repository.Repository, *memStore) {
	st := newMemStore()
	return &repository.Repository{
		Orders:   &memOrderRepo{st: st},
		Items:    &memItemRepo{st: st},
		Payments: &memPaymentRepo{st: st},
	}, st
}

type memOrderRepo struct{ st *memStore }

func (r *memOrderRepo) Create(_ context.Context, o *models.Order) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, taken := r.st.numbers[o.OrderNumber]; taken {
		return gorm.ErrDuplicatedKey
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	cp := *o
	r.st.orders[o.ID] = &cp
	r.st.numbers[o.OrderNumber] = o.ID
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	o, ok := r.st.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Items = r.st.itemsOfLocked(id)
	return &cp, nil
}

func (r *memOrderRepo) GetByNumber(_ context.Context, number string) (*models.Order, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	id, ok := r.st.numbers[number]
	if !ok {
		return nil, nil
	}
	cp := *r.st.orders[id]
	cp.Items = r.st.itemsOfLocked(id)
	return &cp, nil
}

func (r *memOrderRepo) List(_ context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var all []*models.Order
	for _, o := range r.st.orders {
		if f.UserID != nil && (o.UserID == nil || *o.UserID != *f.UserID) {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.PaymentStatus != nil && o.PaymentStatus != *f.PaymentStatus {
			continue
		}
		cp := *o
		all = append(all, &cp)
	}
	total := int64(len(all))
	if f.Offset > len(all) {
		return nil, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (r *memOrderRepo) Update(_ context.Context, id uuid.UUID, fields map[string]any) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	o, ok := r.st.orders[id]
	if !ok {
		return nil
	}
	return applyOrderUpdates(o, fields)
}

func (r *memOrderRepo) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var cnt int64
	for _, o := range r.st.orders {
		if !o.CreatedAt.Before(since) {
			cnt++
		}
	}
	return cnt, nil
}

func (r *memOrderRepo) Delete(_ context.Context, id uuid.UUID) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	o, ok := r.st.orders[id]
	if !ok {
		return 0, nil
	}
	delete(r.st.numbers, o.OrderNumber)
	delete(r.st.orders, id)
	for _, itemID := range r.st.itemIDsOfLocked(id) {
		delete(r.st.items, itemID)
	}
	return 1, nil
}

func (r *memOrderRepo) WithTx(_ context.Context, fn func(or repository.OrderRepo, ir repository.OrderItemRepo, pr repository.PaymentRepo) error) error {
	return fn(r, &memItemRepo{st: r.st}, &memPaymentRepo{st: r.st})
}

type memItemRepo struct{ st *memStore }

func (r *memItemRepo) BulkCreate(_ context.Context, items []models.OrderItem) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		cp := items[i]
		r.st.items[cp.ID] = &cp
		r.st.itemSeq = append(r.st.itemSeq, cp.ID)
	}
	return nil
}

func (r *memItemRepo) GetByID(_ context.Context, id uuid.UUID) (*models.OrderItem, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	it, ok := r.st.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (r *memItemRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.itemsOfLocked(orderID), nil
}

func (r *memItemRepo) Update(_ context.Context, id uuid.UUID, fields map[string]any) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	it, ok := r.st.items[id]
	if !ok {
		return nil
	}
	return applyItemUpdates(it, fields)
}

func (r *memItemRepo) Delete(_ context.Context, id uuid.UUID) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.items[id]; !ok {
		return 0, nil
	}
	delete(r.st.items, id)
	return 1, nil
}

func (r *memItemRepo) DeleteByOrderID(_ context.Context, orderID uuid.UUID) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var n int64
	for _, id := range r.st.itemIDsOfLocked(orderID) {
		delete(r.st.items, id)
		n++
	}
	return n, nil
}

type memPaymentRepo struct{ st *memStore }

func (r *memPaymentRepo) Create(_ context.Context, p *models.Payment) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, taken := r.st.txnIDs[p.TransactionID]; taken {
		return gorm.ErrDuplicatedKey
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.st.payments[p.ID] = &cp
	r.st.txnIDs[p.TransactionID] = p.ID
	return nil
}

func (r *memPaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPaymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	id, ok := r.st.txnIDs[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *r.st.payments[id]
	return &cp, nil
}

func (r *memPaymentRepo) ExistsTransactionID(_ context.Context, transactionID string) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	_, ok := r.st.txnIDs[transactionID]
	return ok, nil
}

func (r *memPaymentRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var rows []models.Payment
	for _, p := range r.st.payments {
		if p.OrderID == orderID {
			rows = append(rows, *p)
		}
	}
	return rows, nil
}

func (r *memPaymentRepo) ListDueRetries(_ context.Context, before time.Time, limit int) ([]models.Payment, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var rows []models.Payment
	for _, p := range r.st.payments {
		if p.Status == models.PaymentStatusPending && p.NextRetryAt != nil && !p.NextRetryAt.After(before) {
			rows = append(rows, *p)
		}
		if limit > 0 && len(rows) == limit {
			break
		}
	}
	return rows, nil
}

func (r *memPaymentRepo) Update(_ context.Context, id uuid.UUID, fields map[string]any) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.payments[id]
	if !ok {
		return nil
	}
	return applyPaymentUpdates(p, fields)
}

func (r *memPaymentRepo) Delete(_ context.Context, id uuid.UUID) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.payments[id]
	if !ok {
		return 0, nil
	}
	delete(r.st.txnIDs, p.TransactionID)
	delete(r.st.payments, id)
	return 1, nil
}

func (st *memStore) itemsOfLocked(orderID uuid.UUID) []models.OrderItem {
	var rows []models.OrderItem
	for _, id := range st.itemSeq {
		it, ok := st.items[id]
		if ok && it.OrderID == orderID {
			rows = append(rows, *it)
		}
	}
	return rows
}

func (st *memStore) itemIDsOfLocked(orderID uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	for id, it := range st.items {
		if it.OrderID == orderID {
			ids = append(ids, id)
		}
	}
	return ids
}

func applyOrderUpdates(o *models.Order, fields map[string]any) error {
	for k, v := range fields {
		switch k {
		case "status":
			o.Status = v.(models.OrderStatus)
		case "payment_status":
			o.PaymentStatus = v.(models.PaymentStatus)
		case "payment_transaction_id":
			s := v.(string)
			o.PaymentTransactionID = &s
		case "subtotal_cents":
			o.SubtotalCents = v.(int64)
		case "items_count":
			o.ItemsCount = v.(int32)
		case "weight_total_grams":
			o.WeightTotalGrams = v.(int64)
		case "total_cents":
			o.TotalCents = v.(int64)
		case "admin_notes":
			s := v.(string)
			o.AdminNotes = &s
		case "cancel_reason":
			s := v.(string)
			o.CancelReason = &s
		case "refund_reason":
			s := v.(string)
			o.RefundReason = &s
		case "shipped_at":
			t := v.(time.Time)
			o.ShippedAt = &t
		case "delivered_at":
			t := v.(time.Time)
			o.DeliveredAt = &t
		case "cancelled_at":
			t := v.(time.Time)
			o.CancelledAt = &t
		case "refunded_at":
			t := v.(time.Time)
			o.RefundedAt = &t
		default:
			return fmt.Errorf("unexpected order column %q", k)
		}
	}
	return nil
}

func applyItemUpdates(it *models.OrderItem, fields map[string]any) error {
	for k, v := range fields {
		switch k {
		case "quantity":
			it.Quantity = v.(int32)
		case "unit_price_cents":
			it.UnitPriceCents = v.(int64)
		case "discount_cents":
			it.DiscountCents = v.(int64)
		case "tax_cents":
			it.TaxCents = v.(int64)
		case "total_price_cents":
			it.TotalPriceCents = v.(int64)
		case "refunded_quantity":
			it.RefundedQuantity = v.(int32)
		case "refunded_amount_cents":
			it.RefundedAmountCents = v.(int64)
		case "refund_reason":
			s := v.(string)
			it.RefundReason = &s
		case "status":
			it.Status = v.(models.OrderItemStatus)
		case "refunded_at":
			t := v.(time.Time)
			it.RefundedAt = &t
		default:
			return fmt.Errorf("unexpected order item column %q", k)
		}
	}
	return nil
}

func applyPaymentUpdates(p *models.Payment, fields map[string]any) error {
	for k, v := range fields {
		switch k {
		case "status":
			p.Status = v.(models.PaymentStatus)
		case "processed_at":
			t := v.(time.Time)
			p.ProcessedAt = &t
		case "failed_at":
			t := v.(time.Time)
			p.FailedAt = &t
		case "refunded_at":
			t := v.(time.Time)
			p.RefundedAt = &t
		case "gateway_error":
			s := v.(string)
			p.GatewayError = &s
		case "gateway_response":
			p.GatewayResponse = v.(models.JSON)
		case "retry_count":
			p.RetryCount = v.(int32)
		case "next_retry_at":
			t := v.(time.Time)
			p.NextRetryAt = &t
		case "refunded_amount_cents":
			p.RefundedAmountCents = v.(int64)
		case "refund_reason":
			s := v.(string)
			p.RefundReason = &s
		default:
			return fmt.Errorf("unexpected payment column %q", k)
		}
	}
	return nil
}

// busRecorder captures published events for assertions.
type busRecorder struct {
	mu            sync.Mutex
	orderCreated  []service.OrderCreatedEvent
	orderStatus   []service.OrderStatusChangedEvent
	paymentStatus []service.PaymentStatusChangedEvent
	refunds       []service.RefundIssuedEvent
}

func (b *busRecorder) PublishOrderCreated(_ context.Context, e service.OrderCreatedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orderCreated = append(b.orderCreated, e)
	return nil
}

func (b *busRecorder) PublishOrderStatusChanged(_ context.Context, e service.OrderStatusChangedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orderStatus = append(b.orderStatus, e)
	return nil
}

func (b *busRecorder) PublishPaymentStatusChanged(_ context.Context, e service.PaymentStatusChangedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paymentStatus = append(b.paymentStatus, e)
	return nil
}

func (b *busRecorder) PublishRefundIssued(_ context.Context, e service.RefundIssuedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refunds = append(b.refunds, e)
	return nil
}

// seqStub hands out a fixed in-memory daily sequence.
type seqStub struct {
	mu  sync.Mutex
	seq int64
}

func (s *seqStub) NextOrderSequence(_ context.Context, _ time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

// adapterStub is a gateway.Adapter with pluggable behavior.
type adapterStub struct {
	chargeFn func(ctx context.Context, req gateway.ChargeRequest) (gateway.Result, error)
	refundFn func(ctx context.Context, req gateway.RefundRequest) (gateway.Result, error)
}

func (a *adapterStub) Charge(ctx context.Context, req gateway.ChargeRequest) (gateway.Result, error) {
	if a.chargeFn == nil {
		return gateway.Result{Success: true, Code: "approved"}, nil
	}
	return a.chargeFn(ctx, req)
}

func (a *adapterStub) Refund(ctx context.Context, req gateway.RefundRequest) (gateway.Result, error) {
	if a.refundFn == nil {
		return gateway.Result{Success: true, Code: "refunded"}, nil
	}
	return a.refundFn(ctx, req)
}
