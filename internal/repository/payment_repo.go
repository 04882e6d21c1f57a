package repository

import (
	"context"
	"errors"
	"time"

	"commerce-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepo interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	ExistsTransactionID(ctx context.Context, transactionID string) (bool, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	// ListDueRetries returns pending payments whose next_retry_at has passed,
	// for the external retry poller.
	ListDueRetries(ctx context.Context, before time.Time, limit int) ([]models.Payment, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) PaymentRepo { return &paymentRepo{db: db} }

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *paymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).First(&p, "transaction_id = ?", transactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *paymentRepo) ExistsTransactionID(ctx context.Context, transactionID string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).Where("transaction_id = ?", transactionID).Count(&cnt).Error
	return cnt > 0, err
}

func (r *paymentRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return rows, err
}

func (r *paymentRepo) ListDueRetries(ctx context.Context, before time.Time, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", models.PaymentStatusPending, before).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *paymentRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(fields).Error
}

func (r *paymentRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Payment{})
	return tx.RowsAffected, tx.Error
}
