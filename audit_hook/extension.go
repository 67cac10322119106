// Package audithook bridges till lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/plugin"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Extension)(nil)
	_ plugin.OnEventCreated   = (*Extension)(nil)
	_ plugin.OnProductAdded   = (*Extension)(nil)
	_ plugin.OnProductDeleted = (*Extension)(nil)
	_ plugin.OnStockAdjusted  = (*Extension)(nil)
	_ plugin.OnSaleRecorded   = (*Extension)(nil)
	_ plugin.OnSaleCommitted  = (*Extension)(nil)
	_ plugin.OnSaleRejected   = (*Extension)(nil)
	_ plugin.OnSaleCancelled  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges till lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnEventCreated implements plugin.OnEventCreated.
func (e *Extension) OnEventCreated(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionEventCreated, SeverityInfo, OutcomeSuccess,
		ResourceEvent, evt.ID.String(), CategoryCatalog, nil,
		"name", evt.Name,
		"date", evt.DateString(),
	)
}

// OnProductAdded implements plugin.OnProductAdded.
func (e *Extension) OnProductAdded(ctx context.Context, p *product.Product) error {
	return e.record(ctx, ActionProductAdded, SeverityInfo, OutcomeSuccess,
		ResourceProduct, p.ID.String(), CategoryCatalog, nil,
		"event_id", p.EventID.String(),
		"name", p.Name,
		"price", p.Price.Int64(),
		"stock", p.Stock,
	)
}

// OnProductDeleted implements plugin.OnProductDeleted.
func (e *Extension) OnProductDeleted(ctx context.Context, productID id.ProductID) error {
	return e.record(ctx, ActionProductDeleted, SeverityWarning, OutcomeSuccess,
		ResourceProduct, productID.String(), CategoryCatalog, nil,
	)
}

// OnStockAdjusted implements plugin.OnStockAdjusted.
func (e *Extension) OnStockAdjusted(ctx context.Context, productID id.ProductID, delta, stock int64) error {
	return e.record(ctx, ActionStockAdjusted, SeverityInfo, OutcomeSuccess,
		ResourceProduct, productID.String(), CategoryInventory, nil,
		"delta", delta,
		"stock", stock,
	)
}

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnSaleRecorded implements plugin.OnSaleRecorded.
func (e *Extension) OnSaleRecorded(ctx context.Context, s *sale.Sale) error {
	return e.record(ctx, ActionSaleRecorded, SeverityInfo, OutcomeSuccess,
		ResourceSale, s.ID.String(), CategorySales, nil,
		saleMeta(s)...,
	)
}

// OnSaleCommitted implements plugin.OnSaleCommitted.
func (e *Extension) OnSaleCommitted(ctx context.Context, s *sale.Sale) error {
	return e.record(ctx, ActionSaleCommitted, SeverityInfo, OutcomeSuccess,
		ResourceSale, s.ID.String(), CategorySales, nil,
		saleMeta(s)...,
	)
}

// OnSaleRejected implements plugin.OnSaleRejected. The sale was never
// written, so its ID is not recorded as the resource.
func (e *Extension) OnSaleRejected(ctx context.Context, s *sale.Sale, reason error) error {
	return e.record(ctx, ActionSaleRejected, SeverityWarning, OutcomeFailure,
		ResourceProduct, s.ProductID.String(), CategorySales, reason,
		saleMeta(s)...,
	)
}

// OnSaleCancelled implements plugin.OnSaleCancelled.
func (e *Extension) OnSaleCancelled(ctx context.Context, s *sale.Sale, restocked bool) error {
	kv := append(saleMeta(s), "restocked", restocked)
	return e.record(ctx, ActionSaleCancelled, SeverityWarning, OutcomeSuccess,
		ResourceSale, s.ID.String(), CategorySales, nil,
		kv...,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func saleMeta(s *sale.Sale) []any {
	return []any{
		"event_id", s.EventID.String(),
		"product_id", s.ProductID.String(),
		"quantity", s.Quantity,
		"total_price", s.TotalPrice.Int64(),
		"sale_time", s.FormattedTime(),
	}
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
