package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commerce-service/internal/idgen"
	"commerce-service/internal/models"
	"commerce-service/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// orderNumberAttempts bounds the retry loop on the order_number unique index
// when two checkouts race for the same daily sequence.
const orderNumberAttempts = 5

type orderService struct {
	repo   *repository.Repository
	seq    idgen.SequenceSource // nil falls back to a count-based sequence
	events EventBus             // nil disables publishing
	now    func() time.Time
}

func NewOrderService(repo *repository.Repository, seq idgen.SequenceSource, events EventBus) OrderService {
	return &orderService{
		repo:   repo,
		seq:    seq,
		events: events,
		now:    time.Now,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if len(in.Currency) != 3 {
		return nil, ErrCurrencyInvalid
	}
	if in.TaxCents < 0 || in.ShippingCents < 0 || in.DiscountCents < 0 || in.CouponDiscountCents < 0 {
		return nil, ErrNegativeAmount
	}

	userID, hasUser := UserIDFromContext(ctx)
	if !hasUser && in.GuestEmail == "" {
		return nil, ErrCustomerRequired
	}

	now := s.now()
	itemsDB := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, ErrQuantityInvalid
		}
		if it.UnitPriceCents < 0 || it.DiscountCents < 0 || it.TaxCents < 0 || it.WeightGrams < 0 {
			return nil, ErrNegativeAmount
		}
		line := LineTotalCents(it.UnitPriceCents, it.Quantity, it.DiscountCents, it.TaxCents)
		if line < 0 {
			return nil, ErrNegativeAmount
		}
		itemsDB = append(itemsDB, models.OrderItem{
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			WeightGrams:     it.WeightGrams,
			Quantity:        it.Quantity,
			UnitPriceCents:  it.UnitPriceCents,
			DiscountCents:   it.DiscountCents,
			TaxCents:        it.TaxCents,
			TotalPriceCents: line,
			Status:          models.OrderItemStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	totals := CalcTotals(itemsDB)
	totalCents := OrderTotalCents(totals.SubtotalCents, in.TaxCents, in.ShippingCents, in.DiscountCents, in.CouponDiscountCents)
	if totalCents < 0 {
		return nil, ErrNegativeAmount
	}

	var (
		order     *models.Order
		guestMail *string
		userPtr   *uuid.UUID
	)
	if hasUser {
		u := userID
		userPtr = &u
	}
	if in.GuestEmail != "" {
		g := in.GuestEmail
		guestMail = &g
	}

	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number := in.OrderNumber
		if number == "" {
			seq, err := s.nextOrderSequence(ctx, now, attempt)
			if err != nil {
				return nil, fmt.Errorf("failed to allocate order sequence: %w", err)
			}
			number = idgen.OrderNumber(now, seq)
		}

		candidate := &models.Order{
			OrderNumber:         number,
			UserID:              userPtr,
			GuestEmail:          guestMail,
			Status:              models.OrderStatusPending,
			SubtotalCents:       totals.SubtotalCents,
			TaxCents:            in.TaxCents,
			ShippingCents:       in.ShippingCents,
			DiscountCents:       in.DiscountCents,
			CouponDiscountCents: in.CouponDiscountCents,
			TotalCents:          totalCents,
			CurrencyCode:        in.Currency,
			PaymentStatus:       models.PaymentStatusPending,
			ItemsCount:          totals.ItemsCount,
			WeightTotalGrams:    totals.WeightTotalGrams,
			BillingAddress:      models.JSON(in.BillingAddress),
			ShippingAddress:     models.JSON(in.ShippingAddress),
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		err := s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, ir repository.OrderItemRepo, _ repository.PaymentRepo) error {
			if err := or.Create(ctx, candidate); err != nil {
				return err
			}
			for i := range itemsDB {
				itemsDB[i].OrderID = candidate.ID
			}
			return ir.BulkCreate(ctx, itemsDB)
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) && in.OrderNumber == "" {
			continue
		}
		if err != nil {
			return nil, err
		}
		order = candidate
		break
	}
	if order == nil {
		return nil, ErrOrderNumberExhausted
	}

	created, err := s.repo.Orders.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order = created

	if s.events != nil {
		guest := ""
		if order.GuestEmail != nil {
			guest = *order.GuestEmail
		}
		_ = s.events.PublishOrderCreated(ctx, OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			GuestEmail:  guest,
			ItemsCount:  order.ItemsCount,
			TotalCents:  order.TotalCents,
			Currency:    order.CurrencyCode,
			CreatedAt:   order.CreatedAt,
		})
	}

	return order, nil
}

func (s *orderService) nextOrderSequence(ctx context.Context, now time.Time, attempt int) (int64, error) {
	if s.seq != nil {
		return s.seq.NextOrderSequence(ctx, now)
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.repo.Orders.CountCreatedSince(ctx, midnight)
	if err != nil {
		return 0, err
	}
	// The count-then-insert fallback races under concurrent checkouts; the
	// unique index on order_number plus the attempt bump resolves it.
	return count + 1 + int64(attempt), nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.authorizeRead(ctx, ord); err != nil {
		return nil, err
	}
	return ord, nil
}

func (s *orderService) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	ord, err := s.repo.Orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.authorizeRead(ctx, ord); err != nil {
		return nil, err
	}
	return ord, nil
}

// authorizeRead lets admins see everything; customers only their own orders.
// Guest orders have no owner and stay readable by their number.
func (s *orderService) authorizeRead(ctx context.Context, ord *models.Order) error {
	if role, ok := RoleFromContext(ctx); ok && role == RoleAdmin {
		return nil
	}
	if ord.UserID == nil {
		return nil
	}
	uid, ok := UserIDFromContext(ctx)
	if !ok || uid != *ord.UserID {
		return ErrForbidden
	}
	return nil
}

func (s *orderService) ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	if role, ok := RoleFromContext(ctx); !ok || role != RoleAdmin {
		uid, ok := UserIDFromContext(ctx)
		if !ok {
			return nil, 0, ErrUnauthorized
		}
		f.UserID = &uid
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	ordersPtr, total, err := s.repo.Orders.List(ctx, repository.OrderListFilter{
		UserID:        f.UserID,
		Status:        f.Status,
		PaymentStatus: f.PaymentStatus,
		Limit:         f.Limit,
		Offset:        f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	orders := make([]models.Order, len(ordersPtr))
	for i, o := range ordersPtr {
		orders[i] = *o
	}
	return orders, total, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, notes *string) (*models.Order, error) {
	if !status.Valid() {
		return nil, ErrUnknownStatus
	}

	var oldStatus models.OrderStatus
	err := s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, _ repository.OrderItemRepo, _ repository.PaymentRepo) error {
		ord, err := or.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		if ord.Status.Terminal() && status != ord.Status {
			return ErrTerminalState
		}
		oldStatus = ord.Status

		updates := orderStatusTransition(status, notes, s.now())
		if notes != nil && *notes != "" {
			updates["admin_notes"] = appendAdminNote(ord.AdminNotes, *notes, s.now())
		}
		return or.Update(ctx, id, updates)
	})
	if err != nil {
		return nil, err
	}

	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		_ = s.events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
			OrderID:     ord.ID,
			OrderNumber: ord.OrderNumber,
			OldStatus:   oldStatus,
			NewStatus:   status,
			Notes:       strOrEmpty(notes),
			ChangedAt:   s.now(),
		})
	}

	return ord, nil
}

// orderStatusTransition returns the full set of derived column updates for a
// target state. Each target stamps exactly one lifecycle timestamp.
func orderStatusTransition(status models.OrderStatus, notes *string, now time.Time) map[string]any {
	updates := map[string]any{"status": status}
	switch status {
	case models.OrderStatusShipped:
		updates["shipped_at"] = now
	case models.OrderStatusDelivered:
		updates["delivered_at"] = now
	case models.OrderStatusCancelled:
		updates["cancelled_at"] = now
		if notes != nil {
			updates["cancel_reason"] = *notes
		}
	case models.OrderStatusRefunded, models.OrderStatusPartiallyRefunded:
		updates["refunded_at"] = now
		if notes != nil {
			updates["refund_reason"] = *notes
		}
	}
	return updates
}

func appendAdminNote(existing *string, note string, at time.Time) string {
	stamped := fmt.Sprintf("[%s] %s", at.Format("2006-01-02 15:04"), note)
	if existing == nil || *existing == "" {
		return stamped
	}
	return *existing + "\n" + stamped
}

func (s *orderService) RecalculateTotals(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	err := s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, ir repository.OrderItemRepo, _ repository.PaymentRepo) error {
		ord, err := or.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		return recalcOrderTotals(ctx, or, ir, ord)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Orders.GetByID(ctx, orderID)
}

// recalcOrderTotals re-reads the order's items and writes the derived
// aggregates back. Runs inside the caller's transaction so an item mutation
// and its recomputation are atomic.
func recalcOrderTotals(ctx context.Context, or repository.OrderRepo, ir repository.OrderItemRepo, ord *models.Order) error {
	items, err := ir.ListByOrder(ctx, ord.ID)
	if err != nil {
		return err
	}
	t := CalcTotals(items)
	total := OrderTotalCents(t.SubtotalCents, ord.TaxCents, ord.ShippingCents, ord.DiscountCents, ord.CouponDiscountCents)
	return or.Update(ctx, ord.ID, map[string]any{
		"subtotal_cents":     t.SubtotalCents,
		"items_count":        t.ItemsCount,
		"weight_total_grams": t.WeightTotalGrams,
		"total_cents":        total,
	})
}

func (s *orderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, _ repository.OrderItemRepo, _ repository.PaymentRepo) error {
		ord, err := or.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		if ord.Status != models.OrderStatusPending {
			return ErrNotPending
		}
		_, err = or.Delete(ctx, id)
		return err
	})
}

func (s *orderService) UpdateOrderItem(ctx context.Context, itemID uuid.UUID, in UpdateOrderItemInput) (*models.OrderItem, error) {
	err := s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, ir repository.OrderItemRepo, _ repository.PaymentRepo) error {
		item, err := ir.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrItemNotFound
		}
		if item.Status != models.OrderItemStatusPending {
			return ErrNotPending
		}

		quantity := item.Quantity
		unit := item.UnitPriceCents
		discount := item.DiscountCents
		tax := item.TaxCents
		if in.Quantity != nil {
			quantity = *in.Quantity
		}
		if in.UnitPriceCents != nil {
			unit = *in.UnitPriceCents
		}
		if in.DiscountCents != nil {
			discount = *in.DiscountCents
		}
		if in.TaxCents != nil {
			tax = *in.TaxCents
		}
		if quantity < 1 {
			return ErrQuantityInvalid
		}
		if unit < 0 || discount < 0 || tax < 0 {
			return ErrNegativeAmount
		}

		line := LineTotalCents(unit, quantity, discount, tax)
		if line < 0 {
			return ErrNegativeAmount
		}
		// Repricing must not undercut what has already been refunded.
		if quantity < item.RefundedQuantity {
			return ErrRefundExceedsQuantity
		}
		if line < item.RefundedAmountCents {
			return ErrRefundExceedsAmount
		}

		if err := ir.Update(ctx, itemID, map[string]any{
			"quantity":          quantity,
			"unit_price_cents":  unit,
			"discount_cents":    discount,
			"tax_cents":         tax,
			"total_price_cents": line,
		}); err != nil {
			return err
		}

		ord, err := or.GetByID(ctx, item.OrderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		return recalcOrderTotals(ctx, or, ir, ord)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Items.GetByID(ctx, itemID)
}

func (s *orderService) RefundOrderItem(ctx context.Context, itemID uuid.UUID, quantity int32, amountCents int64, reason *string) (*models.OrderItem, error) {
	if quantity < 0 {
		return nil, ErrQuantityInvalid
	}
	if amountCents < 0 {
		return nil, ErrNegativeAmount
	}

	var orderID uuid.UUID
	err := s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, ir repository.OrderItemRepo, _ repository.PaymentRepo) error {
		item, err := ir.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrItemNotFound
		}

		// Ceilings are checked before any mutation; a failed refund leaves
		// both counters untouched.
		if quantity > item.RemainingQuantity() {
			return ErrRefundExceedsQuantity
		}
		if amountCents > item.RemainingAmountCents() {
			return ErrRefundExceedsAmount
		}

		now := s.now()
		newQty := item.RefundedQuantity + quantity
		updates := map[string]any{
			"refunded_quantity":     newQty,
			"refunded_amount_cents": item.RefundedAmountCents + amountCents,
			"refunded_at":           now,
		}
		if reason != nil {
			updates["refund_reason"] = *reason
		}
		if newQty == item.Quantity {
			updates["status"] = models.OrderItemStatusRefunded
		}
		if err := ir.Update(ctx, itemID, updates); err != nil {
			return err
		}

		ord, err := or.GetByID(ctx, item.OrderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		orderID = ord.ID
		return recalcOrderTotals(ctx, or, ir, ord)
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		itemRef := itemID
		_ = s.events.PublishRefundIssued(ctx, RefundIssuedEvent{
			OrderID:     orderID,
			OrderItemID: &itemRef,
			Quantity:    quantity,
			AmountCents: amountCents,
			Reason:      strOrEmpty(reason),
			IssuedAt:    s.now(),
		})
	}

	return s.repo.Items.GetByID(ctx, itemID)
}

func (s *orderService) DeleteOrderItem(ctx context.Context, itemID uuid.UUID) error {
	return s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, ir repository.OrderItemRepo, _ repository.PaymentRepo) error {
		item, err := ir.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrItemNotFound
		}
		if item.Status != models.OrderItemStatusPending {
			return ErrNotPending
		}
		if _, err := ir.Delete(ctx, itemID); err != nil {
			return err
		}

		ord, err := or.GetByID(ctx, item.OrderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		return recalcOrderTotals(ctx, or, ir, ord)
	})
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
