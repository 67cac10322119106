package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/plugin"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
)

var (
	_ plugin.Plugin           = (*TracingExtension)(nil)
	_ plugin.OnEventCreated   = (*TracingExtension)(nil)
	_ plugin.OnProductAdded   = (*TracingExtension)(nil)
	_ plugin.OnProductDeleted = (*TracingExtension)(nil)
	_ plugin.OnStockAdjusted  = (*TracingExtension)(nil)
	_ plugin.OnSaleCommitted  = (*TracingExtension)(nil)
	_ plugin.OnSaleRejected   = (*TracingExtension)(nil)
	_ plugin.OnSaleCancelled  = (*TracingExtension)(nil)
)

// TracingExtension annotates the caller's active span with till lifecycle
// events. It starts no spans of its own; a request without a recording
// span costs nothing.
type TracingExtension struct{}

// NewTracingExtension creates a TracingExtension.
func NewTracingExtension() *TracingExtension { return &TracingExtension{} }

// Name implements plugin.Plugin.
func (t *TracingExtension) Name() string { return "observability-tracing" }

// OnEventCreated implements plugin.OnEventCreated.
func (t *TracingExtension) OnEventCreated(ctx context.Context, e *event.Event) error {
	addEvent(ctx, "till.event.created",
		attribute.String("till.event_id", e.ID.String()),
		attribute.String("till.event.date", e.DateString()),
	)
	return nil
}

// OnProductAdded implements plugin.OnProductAdded.
func (t *TracingExtension) OnProductAdded(ctx context.Context, p *product.Product) error {
	addEvent(ctx, "till.product.added",
		attribute.String("till.event_id", p.EventID.String()),
		attribute.String("till.product_id", p.ID.String()),
		attribute.Int64("till.product.price", p.Price.Int64()),
		attribute.Int64("till.product.stock", p.Stock),
	)
	return nil
}

// OnProductDeleted implements plugin.OnProductDeleted.
func (t *TracingExtension) OnProductDeleted(ctx context.Context, productID id.ProductID) error {
	addEvent(ctx, "till.product.deleted",
		attribute.String("till.product_id", productID.String()),
	)
	return nil
}

// OnStockAdjusted implements plugin.OnStockAdjusted.
func (t *TracingExtension) OnStockAdjusted(ctx context.Context, productID id.ProductID, delta, stock int64) error {
	addEvent(ctx, "till.stock.adjusted",
		attribute.String("till.product_id", productID.String()),
		attribute.Int64("till.stock.delta", delta),
		attribute.Int64("till.product.stock", stock),
	)
	return nil
}

// OnSaleCommitted implements plugin.OnSaleCommitted.
func (t *TracingExtension) OnSaleCommitted(ctx context.Context, s *sale.Sale) error {
	addEvent(ctx, "till.sale.committed", saleAttrs(s)...)
	return nil
}

// OnSaleRejected implements plugin.OnSaleRejected. The span is marked as
// errored so rejected checkouts are easy to find.
func (t *TracingExtension) OnSaleRejected(ctx context.Context, s *sale.Sale, reason error) error {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return nil
	}
	span.AddEvent("till.sale.rejected", trace.WithAttributes(
		append(saleAttrs(s), attribute.String("till.reason", reason.Error()))...,
	))
	span.SetStatus(codes.Error, reason.Error())
	return nil
}

// OnSaleCancelled implements plugin.OnSaleCancelled.
func (t *TracingExtension) OnSaleCancelled(ctx context.Context, s *sale.Sale, restocked bool) error {
	addEvent(ctx, "till.sale.cancelled",
		append(saleAttrs(s), attribute.Bool("till.sale.restocked", restocked))...,
	)
	return nil
}

func addEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

func saleAttrs(s *sale.Sale) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("till.sale_id", s.ID.String()),
		attribute.String("till.event_id", s.EventID.String()),
		attribute.String("till.product_id", s.ProductID.String()),
		attribute.Int64("till.sale.quantity", s.Quantity),
		attribute.Int64("till.sale.total_price", s.TotalPrice.Int64()),
	}
}
