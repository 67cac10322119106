// Package observability provides metrics and tracing extensions for till
// that record lifecycle events through a MetricFactory and OpenTelemetry.
package observability

import (
	"context"
	"errors"

	"github.com/xraph/till"
	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/plugin"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin           = (*MetricsExtension)(nil)
	_ plugin.OnInit           = (*MetricsExtension)(nil)
	_ plugin.OnEventCreated   = (*MetricsExtension)(nil)
	_ plugin.OnProductAdded   = (*MetricsExtension)(nil)
	_ plugin.OnProductDeleted = (*MetricsExtension)(nil)
	_ plugin.OnStockAdjusted  = (*MetricsExtension)(nil)
	_ plugin.OnSaleRecorded   = (*MetricsExtension)(nil)
	_ plugin.OnSaleCommitted  = (*MetricsExtension)(nil)
	_ plugin.OnSaleRejected   = (*MetricsExtension)(nil)
	_ plugin.OnSaleCancelled  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records till lifecycle metrics.
// Register it as a till plugin to track sales activity.
type MetricsExtension struct {
	factory MetricFactory

	// Catalog metrics
	EventsCreated   Counter
	ProductsAdded   Counter
	ProductsDeleted Counter
	StockAdjusted   Counter
	StockDelta      Histogram

	// Sale metrics
	SalesRecorded  Counter
	SalesCommitted Counter
	UnitsSold      Counter
	Revenue        Counter
	SaleAmount     Histogram
	SaleQuantity   Histogram

	// Rejection metrics
	RejectedOutOfStock Counter
	RejectedNoProduct  Counter

	// Cancellation metrics
	SalesCancelled  Counter
	RevenueReversed Counter
	UnitsRestocked  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Catalog metrics
		EventsCreated:   factory.Counter("till.event.created"),
		ProductsAdded:   factory.Counter("till.product.added"),
		ProductsDeleted: factory.Counter("till.product.deleted"),
		StockAdjusted:   factory.Counter("till.stock.adjusted"),
		StockDelta:      factory.Histogram("till.stock.delta"),

		// Sale metrics
		SalesRecorded:  factory.Counter("till.sale.recorded"),
		SalesCommitted: factory.Counter("till.sale.committed"),
		UnitsSold:      factory.Counter("till.sale.units"),
		Revenue:        factory.Counter("till.sale.revenue"),
		SaleAmount:     factory.Histogram("till.sale.amount"),
		SaleQuantity:   factory.Histogram("till.sale.quantity"),

		// Rejection metrics
		RejectedOutOfStock: factory.Counter("till.sale.rejected.out_of_stock"),
		RejectedNoProduct:  factory.Counter("till.sale.rejected.no_product"),

		// Cancellation metrics
		SalesCancelled:  factory.Counter("till.sale.cancelled"),
		RevenueReversed: factory.Counter("till.sale.revenue_reversed"),
		UnitsRestocked:  factory.Counter("till.stock.restocked"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnEventCreated implements plugin.OnEventCreated.
func (m *MetricsExtension) OnEventCreated(_ context.Context, _ *event.Event) error {
	m.EventsCreated.Inc()
	return nil
}

// OnProductAdded implements plugin.OnProductAdded.
func (m *MetricsExtension) OnProductAdded(_ context.Context, _ *product.Product) error {
	m.ProductsAdded.Inc()
	return nil
}

// OnProductDeleted implements plugin.OnProductDeleted.
func (m *MetricsExtension) OnProductDeleted(_ context.Context, _ id.ProductID) error {
	m.ProductsDeleted.Inc()
	return nil
}

// OnStockAdjusted implements plugin.OnStockAdjusted.
func (m *MetricsExtension) OnStockAdjusted(_ context.Context, _ id.ProductID, delta, _ int64) error {
	m.StockAdjusted.Inc()
	m.StockDelta.Observe(float64(delta))
	return nil
}

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnSaleRecorded implements plugin.OnSaleRecorded.
func (m *MetricsExtension) OnSaleRecorded(_ context.Context, _ *sale.Sale) error {
	m.SalesRecorded.Inc()
	return nil
}

// OnSaleCommitted implements plugin.OnSaleCommitted.
func (m *MetricsExtension) OnSaleCommitted(_ context.Context, s *sale.Sale) error {
	m.SalesCommitted.Inc()
	m.UnitsSold.Add(float64(s.Quantity))
	m.Revenue.Add(float64(s.TotalPrice.Int64()))
	m.SaleAmount.Observe(float64(s.TotalPrice.Int64()))
	m.SaleQuantity.Observe(float64(s.Quantity))
	return nil
}

// OnSaleRejected implements plugin.OnSaleRejected.
func (m *MetricsExtension) OnSaleRejected(_ context.Context, _ *sale.Sale, reason error) error {
	switch {
	case errors.Is(reason, till.ErrInsufficientStock):
		m.RejectedOutOfStock.Inc()
	case errors.Is(reason, till.ErrProductNotFound):
		m.RejectedNoProduct.Inc()
	}
	return nil
}

// OnSaleCancelled implements plugin.OnSaleCancelled.
func (m *MetricsExtension) OnSaleCancelled(_ context.Context, s *sale.Sale, restocked bool) error {
	m.SalesCancelled.Inc()
	m.RevenueReversed.Add(float64(s.TotalPrice.Int64()))
	if restocked {
		m.UnitsRestocked.Add(float64(s.Quantity))
	}
	return nil
}
