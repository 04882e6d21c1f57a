package migrate

import (
	"context"

	"commerce-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto, uuid-ossp
	CreateChecks           bool // CHECK constraints for monetary/refund invariants
	CreateIndexes          bool // indexes and UNIQUE
	CreateFKsViaSQL        bool // FKs via SQL (on top of GORM constraints)
	CreateUpdatedAtTrigger bool // updated_at trigger
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

func MigrateCommerceDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("starting commerce database migration")

	if opt.CreateExtensions {
		log.Info("creating postgres extensions")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("failed to enable pgcrypto", zap.Error(err))
			return err
		}
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
			log.Error("failed to enable uuid-ossp", zap.Error(err))
			return err
		}
	}

	log.Info("creating tables orders, order_items, payments")
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Payment{}); err != nil {
		log.Error("failed to create tables", zap.Error(err))
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		log.Info("creating updated_at triggers")
		if err := db.Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated
BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_order_items_updated ON order_items;
CREATE TRIGGER trg_order_items_updated
BEFORE UPDATE ON order_items
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_payments_updated ON payments;
CREATE TRIGGER trg_payments_updated
BEFORE UPDATE ON payments
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("failed to create updated_at triggers", zap.Error(err))
			return err
		}
	}

	if opt.CreateChecks {
		log.Info("creating CHECK constraints")

		// Statuses are stored as TEXT.
		if err := db.Exec(`
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_status_allowed;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_status_allowed
  CHECK (status IN ('pending','confirmed','processing','shipped','delivered','cancelled','refunded','partially_refunded'));
`).Error; err != nil {
			log.Error("failed to create CHECK for order statuses", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS chk_order_items_status_allowed;
ALTER TABLE order_items
  ADD CONSTRAINT chk_order_items_status_allowed
  CHECK (status IN ('pending','confirmed','shipped','delivered','cancelled','refunded'));
`).Error; err != nil {
			log.Error("failed to create CHECK for order item statuses", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE payments
  DROP CONSTRAINT IF EXISTS chk_payments_status_allowed;
ALTER TABLE payments
  ADD CONSTRAINT chk_payments_status_allowed
  CHECK (status IN ('pending','processing','completed','failed','cancelled','refunded','partially_refunded'));
`).Error; err != nil {
			log.Error("failed to create CHECK for payment statuses", zap.Error(err))
			return err
		}

		// Currency code is exactly 3 characters.
		if err := db.Exec(`
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_currency_code_len;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_currency_code_len
  CHECK (char_length(currency_code) = 3);

ALTER TABLE payments
  DROP CONSTRAINT IF EXISTS chk_payments_currency_code_len;
ALTER TABLE payments
  ADD CONSTRAINT chk_payments_currency_code_len
  CHECK (char_length(currency_code) = 3);
`).Error; err != nil {
			log.Error("failed to create CHECK for currency codes", zap.Error(err))
			return err
		}

		// Monetary fields are non-negative.
		if err := db.Exec(`
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_amounts_non_negative;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_amounts_non_negative
  CHECK (subtotal_cents >= 0 AND tax_cents >= 0 AND shipping_cents >= 0
     AND discount_cents >= 0 AND coupon_discount_cents >= 0 AND total_cents >= 0);
`).Error; err != nil {
			log.Error("failed to create CHECK for order amounts", zap.Error(err))
			return err
		}

		// Refund ledger bounds on line items.
		if err := db.Exec(`
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gt_zero;
ALTER TABLE order_items
  ADD CONSTRAINT chk_order_items_quantity_gt_zero
  CHECK (quantity > 0);

ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS chk_order_items_prices_non_negative;
ALTER TABLE order_items
  ADD CONSTRAINT chk_order_items_prices_non_negative
  CHECK (unit_price_cents >= 0 AND discount_cents >= 0 AND tax_cents >= 0 AND total_price_cents >= 0);

ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS chk_order_items_refund_bounds;
ALTER TABLE order_items
  ADD CONSTRAINT chk_order_items_refund_bounds
  CHECK (refunded_quantity >= 0 AND refunded_quantity <= quantity
     AND refunded_amount_cents >= 0 AND refunded_amount_cents <= total_price_cents);
`).Error; err != nil {
			log.Error("failed to create CHECK for order item bounds", zap.Error(err))
			return err
		}

		// Refund ceiling on payments.
		if err := db.Exec(`
ALTER TABLE payments
  DROP CONSTRAINT IF EXISTS chk_payments_refund_bounds;
ALTER TABLE payments
  ADD CONSTRAINT chk_payments_refund_bounds
  CHECK (amount_cents >= 0 AND refunded_amount_cents >= 0 AND refunded_amount_cents <= amount_cents);
`).Error; err != nil {
			log.Error("failed to create CHECK for payment bounds", zap.Error(err))
			return err
		}
	}

	if opt.CreateIndexes {
		log.Info("creating indexes")

		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_number ON orders (order_number);
CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_transaction ON payments (transaction_id);

CREATE INDEX IF NOT EXISTS ix_orders_user_created
ON orders (user_id, created_at DESC);

CREATE INDEX IF NOT EXISTS ix_orders_status_created
ON orders (status, created_at DESC);

CREATE INDEX IF NOT EXISTS ix_payments_due_retries
ON payments (next_retry_at)
WHERE status = 'pending' AND next_retry_at IS NOT NULL;
`).Error; err != nil {
			log.Error("failed to create indexes", zap.Error(err))
			return err
		}
	}

	if opt.CreateFKsViaSQL {
		log.Info("creating foreign keys")

		if err := db.Exec(`
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;

ALTER TABLE payments
  DROP CONSTRAINT IF EXISTS fk_payments_order,
  ADD CONSTRAINT fk_payments_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("failed to create foreign keys", zap.Error(err))
			return err
		}
	}

	log.Info("commerce database migration completed")
	return nil
}
