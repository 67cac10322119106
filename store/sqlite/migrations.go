package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the till store (SQLite).
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
    created_at TIMESTAMP NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_till_events_created ON till_events (created_at);
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
    price      INTEGER NOT NULL CHECK (price >= 0),
    stock      INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
    created_at TIMESTAMP NOT NULL DEFAULT (datetime('now'))
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
				// outlives a deleted product.
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS till_sales (
    id          TEXT PRIMARY KEY,
    event_id    TEXT NOT NULL,
    product_id  TEXT NOT NULL,
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    total_price INTEGER NOT NULL CHECK (total_price >= 0),
    sale_time   TIMESTAMP NOT NULL,
    cancelled   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_till_sales_event_time ON till_sales (event_id, sale_time);
CREATE INDEX IF NOT EXISTS idx_till_sales_product ON till_sales (product_id, cancelled);
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
CREATE VIEW IF NOT EXISTS till_sale_records AS
SELECT s.id, s.event_id, s.product_id, s.quantity, s.total_price, s.sale_time, s.cancelled,
       COALESCE(p.name, '') AS product_name,
       s.rowid AS seq
FROM till_sales s
LEFT JOIN till_products p ON p.id = s.product_id;

CREATE VIEW IF NOT EXISTS till_product_totals AS
SELECT p.id AS product_id, p.event_id, p.name, p.price,
       COALESCE(SUM(s.quantity), 0) AS quantity,
       COALESCE(SUM(s.total_price), 0) AS revenue
FROM till_products p
LEFT JOIN till_sales s ON s.product_id = p.id AND s.cancelled = 0
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
		&migrate.Migration{
			Name:    "create_till_sale_commit_trigger",
			Version: "20250401000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				// An INSERT into the view runs the whole trigger body as one
				// statement: any RAISE or CHECK failure rolls back both the
				// sale row and the stock decrement.
				_, err := exec.Exec(ctx, `
CREATE VIEW IF NOT EXISTS till_sale_commits AS
SELECT id, event_id, product_id, quantity, total_price, sale_time
FROM till_sales WHERE 0;

CREATE TRIGGER IF NOT EXISTS till_sale_commits_insert
INSTEAD OF INSERT ON till_sale_commits
BEGIN
    SELECT RAISE(ABORT, 'till: product not found')
    WHERE NOT EXISTS (SELECT 1 FROM till_products WHERE id = NEW.product_id);

    SELECT RAISE(ABORT, 'till: insufficient stock')
    WHERE (SELECT stock FROM till_products WHERE id = NEW.product_id) < NEW.quantity;

    INSERT INTO till_sales (id, event_id, product_id, quantity, total_price, sale_time, cancelled)
    VALUES (NEW.id, NEW.event_id, NEW.product_id, NEW.quantity, NEW.total_price, NEW.sale_time, 0);

    UPDATE till_products SET stock = stock - NEW.quantity WHERE id = NEW.product_id;
END;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TRIGGER IF EXISTS till_sale_commits_insert;
DROP VIEW IF EXISTS till_sale_commits;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_till_sale_cancel_trigger",
			Version: "20250401000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE VIEW IF NOT EXISTS till_sale_cancellations AS
SELECT id, 0 AS restock FROM till_sales WHERE 0;

CREATE TRIGGER IF NOT EXISTS till_sale_cancellations_insert
INSTEAD OF INSERT ON till_sale_cancellations
BEGIN
    SELECT RAISE(ABORT, 'till: sale not found')
    WHERE NOT EXISTS (SELECT 1 FROM till_sales WHERE id = NEW.id);

    SELECT RAISE(ABORT, 'till: sale already cancelled')
    WHERE EXISTS (SELECT 1 FROM till_sales WHERE id = NEW.id AND cancelled <> 0);

    UPDATE till_products
    SET stock = stock + (SELECT quantity FROM till_sales WHERE id = NEW.id)
    WHERE NEW.restock <> 0
      AND id = (SELECT product_id FROM till_sales WHERE id = NEW.id);

    UPDATE till_sales SET cancelled = 1 WHERE id = NEW.id;
END;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TRIGGER IF EXISTS till_sale_cancellations_insert;
DROP VIEW IF EXISTS till_sale_cancellations;
`)
				return err
			},
		},
	)
}
