// Package postgres implements store.Store on PostgreSQL through the grove
// ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/till"
	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
	tillstore "github.com/xraph/till/store"
)

// compile-time interface check
var _ tillstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and views using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("till/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("till/postgres: %w: %w", till.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Event Store ====================

func (s *Store) CreateEvent(ctx context.Context, e *event.Event) error {
	_, err := s.pg.NewInsert(toEventModel(e)).Exec(ctx)
	return err
}

func (s *Store) GetEvent(ctx context.Context, eventID id.EventID) (*event.Event, error) {
	m := new(eventModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", eventID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, till.ErrEventNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) ListEvents(ctx context.Context) ([]*event.Event, error) {
	var models []eventModel
	err := s.pg.NewSelect(&models).
		OrderExpr("created_at DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		e, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Product Store ====================

func (s *Store) CreateProduct(ctx context.Context, p *product.Product) error {
	if _, err := s.GetEvent(ctx, p.EventID); err != nil {
		return err
	}
	_, err := s.pg.NewInsert(toProductModel(p)).Exec(ctx)
	return err
}

func (s *Store) GetProduct(ctx context.Context, productID id.ProductID) (*product.Product, error) {
	m := new(productModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", productID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, till.ErrProductNotFound
		}
		return nil, err
	}
	return fromProductModel(m)
}

func (s *Store) ListProducts(ctx context.Context, eventID id.EventID) ([]*product.Product, error) {
	var models []productModel
	err := s.pg.NewSelect(&models).
		Where("event_id = $1", eventID.String()).
		OrderExpr("name ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*product.Product, len(models))
	for i := range models {
		p, err := fromProductModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) DeleteProduct(ctx context.Context, productID id.ProductID) error {
	res, err := s.pg.NewDelete((*productModel)(nil)).
		Where("id = $1", productID.String()).
		Where("NOT EXISTS (SELECT 1 FROM till_sales WHERE till_sales.product_id = till_products.id AND NOT till_sales.cancelled)").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return err
	}
	return till.ErrProductHasSales
}

// AdjustStock applies the delta only when the result stays non-negative.
func (s *Store) AdjustStock(ctx context.Context, productID id.ProductID, delta int64) (int64, error) {
	var outcome int
	err := s.pg.NewRaw(`
		WITH upd AS (
			UPDATE till_products SET stock = stock + $2
			WHERE id = $1 AND stock + $2 >= 0
			RETURNING id
		)
		SELECT CASE
			WHEN EXISTS (SELECT 1 FROM upd) THEN 1
			WHEN EXISTS (SELECT 1 FROM till_products WHERE id = $1) THEN 2
			ELSE 0
		END
	`, productID.String(), delta).Scan(ctx, &outcome)
	if err != nil {
		return 0, err
	}
	if outcome == outcomeMissing {
		return 0, till.ErrProductNotFound
	}

	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if outcome == outcomeRejected {
		return p.Stock, till.ErrInsufficientStock
	}
	return p.Stock, nil
}

// ==================== Sale Store ====================

func (s *Store) RecordSale(ctx context.Context, sl *sale.Sale) error {
	_, err := s.pg.NewInsert(toSaleModel(sl)).Exec(ctx)
	return err
}

// Outcomes reported by the commit and cancel statements.
const (
	outcomeMissing  = 0
	outcomeApplied  = 1
	outcomeRejected = 2
)

// CommitSale decrements stock and inserts the sale in one data-modifying
// statement. The INSERT only sees a row when the guarded UPDATE matched,
// so a sale never lands without its decrement.
func (s *Store) CommitSale(ctx context.Context, sl *sale.Sale) error {
	m := toSaleModel(sl)

	var outcome int
	err := s.pg.NewRaw(`
		WITH taken AS (
			UPDATE till_products SET stock = stock - $4
			WHERE id = $3 AND stock >= $4
			RETURNING id
		), ins AS (
			INSERT INTO till_sales (id, event_id, product_id, quantity, total_price, sale_time, cancelled)
			SELECT $1, $2, taken.id, $4, $5, $6, FALSE FROM taken
			RETURNING id
		)
		SELECT CASE
			WHEN EXISTS (SELECT 1 FROM ins) THEN 1
			WHEN EXISTS (SELECT 1 FROM till_products WHERE id = $3) THEN 2
			ELSE 0
		END
	`, m.ID, m.EventID, m.ProductID, m.Quantity, m.TotalPrice, m.SaleTime).Scan(ctx, &outcome)
	if err != nil {
		return err
	}

	switch outcome {
	case outcomeApplied:
		return nil
	case outcomeRejected:
		return till.ErrInsufficientStock
	default:
		return till.ErrProductNotFound
	}
}

func (s *Store) GetSale(ctx context.Context, saleID id.SaleID) (*sale.Sale, error) {
	m := new(saleRecordModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", saleID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, till.ErrSaleNotFound
		}
		return nil, err
	}
	rec, err := fromSaleRecordModel(m)
	if err != nil {
		return nil, err
	}
	return &rec.Sale, nil
}

// CancelSale flips the flag and, when restock is set, returns the quantity
// to the product in the same statement.
func (s *Store) CancelSale(ctx context.Context, saleID id.SaleID, restock bool) error {
	var outcome int
	err := s.pg.NewRaw(`
		WITH target AS (
			SELECT id, product_id, quantity, cancelled FROM till_sales
			WHERE id = $1
			FOR UPDATE
		), flip AS (
			UPDATE till_sales s SET cancelled = TRUE
			FROM target t
			WHERE s.id = t.id AND NOT t.cancelled
			RETURNING s.product_id, s.quantity
		), refill AS (
			UPDATE till_products p SET stock = p.stock + f.quantity
			FROM flip f
			WHERE $2::BOOLEAN AND p.id = f.product_id
			RETURNING p.id
		)
		SELECT CASE
			WHEN NOT EXISTS (SELECT 1 FROM target) THEN 0
			WHEN EXISTS (SELECT 1 FROM flip) THEN 1
			ELSE 2
		END
	`, saleID.String(), restock).Scan(ctx, &outcome)
	if err != nil {
		return err
	}

	switch outcome {
	case outcomeApplied:
		return nil
	case outcomeRejected:
		return till.ErrSaleAlreadyCancelled
	default:
		return till.ErrSaleNotFound
	}
}

func (s *Store) RecentSales(ctx context.Context, eventID id.EventID, limit int) ([]*sale.Record, error) {
	var models []saleRecordModel
	q := s.pg.NewSelect(&models).
		Where("event_id = $1", eventID.String()).
		OrderExpr("sale_time DESC, seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*sale.Record, len(models))
	for i := range models {
		rec, err := fromSaleRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = rec
	}
	return result, nil
}

// SalesTotals reads revenue, units and count in one statement so the three
// figures come from the same snapshot.
func (s *Store) SalesTotals(ctx context.Context, eventID id.EventID) (*sale.Totals, error) {
	var revenue, quantity, count int64
	err := s.pg.NewRaw(`
		SELECT COALESCE(SUM(total_price), 0)::BIGINT, COALESCE(SUM(quantity), 0)::BIGINT, COUNT(*)
		FROM till_sales
		WHERE event_id = $1 AND NOT cancelled
	`, eventID.String()).Scan(ctx, &revenue, &quantity, &count)
	if err != nil {
		return nil, err
	}
	return newTotals(revenue, quantity, count), nil
}

func (s *Store) ProductTotals(ctx context.Context, eventID id.EventID) ([]*sale.ProductTotal, error) {
	var models []productTotalModel
	err := s.pg.NewSelect(&models).
		Where("event_id = $1", eventID.String()).
		OrderExpr("revenue DESC, name ASC, product_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*sale.ProductTotal, len(models))
	for i := range models {
		row, err := fromProductTotalModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = row
	}
	return result, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
