package postgres

import (
	"context"
	"fmt"
)

// schema DDL idempotente del ledger. Los eventos no tienen UPDATE ni DELETE en el código;
// products y warehouses son de solo lectura para este servicio.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id        TEXT PRIMARY KEY,
		sku       TEXT NOT NULL DEFAULT '',
		name      TEXT NOT NULL DEFAULT '',
		thumbnail TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS warehouses (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_change_events (
		id                UUID PRIMARY KEY,
		product_id        TEXT NOT NULL,
		warehouse_id      TEXT NOT NULL,
		action_type       TEXT NOT NULL,
		quantity_change   BIGINT NOT NULL,
		previous_quantity BIGINT NOT NULL,
		new_quantity      BIGINT NOT NULL,
		source            TEXT NOT NULL DEFAULT 'API',
		reference_id      TEXT NOT NULL DEFAULT '',
		reference_type    TEXT NOT NULL DEFAULT '',
		actor_id          TEXT NOT NULL DEFAULT '',
		actor_name        TEXT NOT NULL DEFAULT '',
		occurred_at       TIMESTAMPTZ NOT NULL,
		notes             TEXT NOT NULL DEFAULT '',
		metadata          JSONB,
		CONSTRAINT change_events_quantity_check CHECK (new_quantity = previous_quantity + quantity_change)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_change_events_key_time
		ON inventory_change_events (product_id, warehouse_id, occurred_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_change_events_reference
		ON inventory_change_events (reference_id, reference_type)`,
	`CREATE INDEX IF NOT EXISTS idx_change_events_warehouse_time
		ON inventory_change_events (warehouse_id, occurred_at DESC)`,
	`CREATE TABLE IF NOT EXISTS inventory_stock (
		product_id        TEXT NOT NULL,
		warehouse_id      TEXT NOT NULL,
		quantity          BIGINT NOT NULL CHECK (quantity >= 0),
		availability      TEXT NOT NULL,
		automated_restock BOOLEAN NOT NULL DEFAULT FALSE,
		quarantined       BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (product_id, warehouse_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_stock_availability
		ON inventory_stock (availability, automated_restock)`,
	`CREATE TABLE IF NOT EXISTS stock_predictions (
		month             TEXT NOT NULL,
		warehouse_id      TEXT NOT NULL,
		product_id        TEXT NOT NULL,
		daily_average     NUMERIC(14,4) NOT NULL DEFAULT 0,
		daily_predicted   NUMERIC(14,4) NOT NULL DEFAULT 0,
		weekly_predicted  NUMERIC(14,4) NOT NULL DEFAULT 0,
		days_remaining    NUMERIC(14,4) NOT NULL DEFAULT 0,
		safety_stock      BIGINT NOT NULL DEFAULT 0,
		suggested_restock BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (month, warehouse_id, product_id)
	)`,
}

// Migrate aplica el esquema. Es seguro ejecutarlo en cada arranque.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
