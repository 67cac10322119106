package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the till store.
var Migrations = migrate.NewGroup("till")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_till_events",
			Version: "20250401000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS till_events (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    date       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_till_events_created ON till_events (created_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS till_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_till_products",
			Version: "20250401000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS till_products (
    id         TEXT PRIMARY KEY,
    event_id   TEXT NOT NULL REFERENCES till_events (id),
    name       TEXT NOT NULL,
    price      BIGINT NOT NULL CHECK (price >= 0),
    stock      BIGINT NOT NULL DEFAULT 0 CHECK (stock >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_till_products_event ON till_products (event_id, name);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS till_products`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_till_sales",
			Version: "20250401000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				// product_id carries no foreign key: cancelled history
				// outlives a deleted product. seq breaks sale_time ties.
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS till_sales (
    id          TEXT PRIMARY KEY,
    event_id    TEXT NOT NULL,
    product_id  TEXT NOT NULL,
    quantity    BIGINT NOT NULL CHECK (quantity > 0),
    total_price BIGINT NOT NULL CHECK (total_price >= 0),
    sale_time   TIMESTAMPTZ NOT NULL,
    cancelled   BOOLEAN NOT NULL DEFAULT FALSE,
    seq         BIGSERIAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_till_sales_event_time ON till_sales (event_id, sale_time DESC, seq DESC);
CREATE INDEX IF NOT EXISTS idx_till_sales_product ON till_sales (product_id) WHERE NOT cancelled;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS till_sales`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_till_read_views",
			Version: "20250401000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE OR REPLACE VIEW till_sale_records AS
SELECT s.id, s.event_id, s.product_id, s.quantity, s.total_price, s.sale_time, s.cancelled,
       COALESCE(p.name, '') AS product_name,
       s.seq
FROM till_sales s
LEFT JOIN till_products p ON p.id = s.product_id;

CREATE OR REPLACE VIEW till_product_totals AS
SELECT p.id AS product_id, p.event_id, p.name, p.price,
       COALESCE(SUM(s.quantity), 0)::BIGINT AS quantity,
       COALESCE(SUM(s.total_price), 0)::BIGINT AS revenue
FROM till_products p
LEFT JOIN till_sales s ON s.product_id = p.id AND NOT s.cancelled
GROUP BY p.id, p.event_id, p.name, p.price;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP VIEW IF EXISTS till_product_totals;
DROP VIEW IF EXISTS till_sale_records;
`)
				return err
			},
		},
	)
}
