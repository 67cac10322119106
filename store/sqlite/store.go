// Package sqlite implements store.Store on an embedded SQLite database
// through the grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
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

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables, views and triggers using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("till/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("till/sqlite: %w: %w", till.ErrMigrationFailed, err)
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
	_, err := s.sdb.NewInsert(toEventModel(e)).Exec(ctx)
	return err
}

func (s *Store) GetEvent(ctx context.Context, eventID id.EventID) (*event.Event, error) {
	m := new(eventModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", eventID.String()).
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
	err := s.sdb.NewSelect(&models).
		OrderExpr("created_at DESC, rowid DESC").
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
	_, err := s.sdb.NewInsert(toProductModel(p)).Exec(ctx)
	return err
}

func (s *Store) GetProduct(ctx context.Context, productID id.ProductID) (*product.Product, error) {
	m := new(productModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", productID.String()).
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
	err := s.sdb.NewSelect(&models).
		Where("event_id = ?", eventID.String()).
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

// DeleteProduct deletes in one guarded statement so a sale committed in
// between cannot be orphaned.
func (s *Store) DeleteProduct(ctx context.Context, productID id.ProductID) error {
	res, err := s.sdb.NewDelete((*productModel)(nil)).
		Where("id = ?", productID.String()).
		Where("NOT EXISTS (SELECT 1 FROM till_sales WHERE till_sales.product_id = till_products.id AND till_sales.cancelled = 0)").
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

func (s *Store) AdjustStock(ctx context.Context, productID id.ProductID, delta int64) (int64, error) {
	res, err := s.sdb.NewUpdate((*productModel)(nil)).
		Set("stock = stock + ?", delta).
		Where("id = ?", productID.String()).
		Where("stock + ? >= 0", delta).
		Exec(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return p.Stock, till.ErrInsufficientStock
	}
	return p.Stock, nil
}

// ==================== Sale Store ====================

func (s *Store) RecordSale(ctx context.Context, sl *sale.Sale) error {
	_, err := s.sdb.NewInsert(toSaleModel(sl)).Exec(ctx)
	return err
}

// CommitSale inserts through the till_sale_commits view. The INSTEAD OF
// trigger records the sale and decrements stock within the one INSERT
// statement, so SQLite rolls both back together on failure.
func (s *Store) CommitSale(ctx context.Context, sl *sale.Sale) error {
	_, err := s.sdb.NewInsert(toSaleCommitModel(sl)).Exec(ctx)
	return mapError(err)
}

func (s *Store) GetSale(ctx context.Context, saleID id.SaleID) (*sale.Sale, error) {
	m := new(saleRecordModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", saleID.String()).
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

func (s *Store) CancelSale(ctx context.Context, saleID id.SaleID, restock bool) error {
	_, err := s.sdb.NewInsert(&saleCancelModel{ID: saleID.String(), Restock: restock}).Exec(ctx)
	return mapError(err)
}

func (s *Store) RecentSales(ctx context.Context, eventID id.EventID, limit int) ([]*sale.Record, error) {
	var models []saleRecordModel
	q := s.sdb.NewSelect(&models).
		Where("event_id = ?", eventID.String()).
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
	err := s.sdb.NewRaw(`
		SELECT COALESCE(SUM(total_price), 0), COALESCE(SUM(quantity), 0), COUNT(*)
		FROM till_sales
		WHERE event_id = ? AND cancelled = 0
	`, eventID.String()).Scan(ctx, &revenue, &quantity, &count)
	if err != nil {
		return nil, err
	}
	return newTotals(revenue, quantity, count), nil
}

func (s *Store) ProductTotals(ctx context.Context, eventID id.EventID) ([]*sale.ProductTotal, error) {
	var models []productTotalModel
	err := s.sdb.NewSelect(&models).
		Where("event_id = ?", eventID.String()).
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

// ==================== Helpers ====================

// triggerErrors maps RAISE messages from the commit and cancel triggers
// back to their sentinels.
var triggerErrors = []error{
	till.ErrProductNotFound,
	till.ErrInsufficientStock,
	till.ErrSaleNotFound,
	till.ErrSaleAlreadyCancelled,
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, sentinel := range triggerErrors {
		if strings.Contains(msg, sentinel.Error()) {
			return sentinel
		}
	}
	if strings.Contains(msg, "CHECK constraint failed: stock") {
		return till.ErrInsufficientStock
	}
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
