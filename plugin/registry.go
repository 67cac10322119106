package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit           []OnInit
	onShutdown       []OnShutdown
	onEventCreated   []OnEventCreated
	onProductAdded   []OnProductAdded
	onProductDeleted []OnProductDeleted
	onStockAdjusted  []OnStockAdjusted
	onSaleRecorded   []OnSaleRecorded
	onSaleCommitted  []OnSaleCommitted
	onSaleRejected   []OnSaleRejected
	onSaleCancelled  []OnSaleCancelled
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnEventCreated); ok {
		r.onEventCreated = append(r.onEventCreated, v)
	}
	if v, ok := p.(OnProductAdded); ok {
		r.onProductAdded = append(r.onProductAdded, v)
	}
	if v, ok := p.(OnProductDeleted); ok {
		r.onProductDeleted = append(r.onProductDeleted, v)
	}
	if v, ok := p.(OnStockAdjusted); ok {
		r.onStockAdjusted = append(r.onStockAdjusted, v)
	}
	if v, ok := p.(OnSaleRecorded); ok {
		r.onSaleRecorded = append(r.onSaleRecorded, v)
	}
	if v, ok := p.(OnSaleCommitted); ok {
		r.onSaleCommitted = append(r.onSaleCommitted, v)
	}
	if v, ok := p.(OnSaleRejected); ok {
		r.onSaleRejected = append(r.onSaleRejected, v)
	}
	if v, ok := p.(OnSaleCancelled); ok {
		r.onSaleCancelled = append(r.onSaleCancelled, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name  string
	iface reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnEventCreated", reflect.TypeOf((*OnEventCreated)(nil)).Elem()},
	{"OnProductAdded", reflect.TypeOf((*OnProductAdded)(nil)).Elem()},
	{"OnProductDeleted", reflect.TypeOf((*OnProductDeleted)(nil)).Elem()},
	{"OnStockAdjusted", reflect.TypeOf((*OnStockAdjusted)(nil)).Elem()},
	{"OnSaleRecorded", reflect.TypeOf((*OnSaleRecorded)(nil)).Elem()},
	{"OnSaleCommitted", reflect.TypeOf((*OnSaleCommitted)(nil)).Elem()},
	{"OnSaleRejected", reflect.TypeOf((*OnSaleRejected)(nil)).Elem()},
	{"OnSaleCancelled", reflect.TypeOf((*OnSaleCancelled)(nil)).Elem()},
}

// implementedInterfaces returns the hook names implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.iface) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs fn for every plugin in list, logging failures at Warn.
// Hook errors never propagate to the caller.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, list func(*Registry) []T, fn func(T) error) {
	r.mu.RLock()
	plugins := list(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, t interface{}) {
	emit(ctx, r, "OnInit", func(r *Registry) []OnInit { return r.onInit },
		func(p OnInit) error { return p.OnInit(ctx, t) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", func(r *Registry) []OnShutdown { return r.onShutdown },
		func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitEventCreated emits an event created notification.
func (r *Registry) EmitEventCreated(ctx context.Context, e *event.Event) {
	emit(ctx, r, "OnEventCreated", func(r *Registry) []OnEventCreated { return r.onEventCreated },
		func(p OnEventCreated) error { return p.OnEventCreated(ctx, e) })
}

// EmitProductAdded emits a product added notification.
func (r *Registry) EmitProductAdded(ctx context.Context, pr *product.Product) {
	emit(ctx, r, "OnProductAdded", func(r *Registry) []OnProductAdded { return r.onProductAdded },
		func(p OnProductAdded) error { return p.OnProductAdded(ctx, pr) })
}

// EmitProductDeleted emits a product deleted notification.
func (r *Registry) EmitProductDeleted(ctx context.Context, productID id.ProductID) {
	emit(ctx, r, "OnProductDeleted", func(r *Registry) []OnProductDeleted { return r.onProductDeleted },
		func(p OnProductDeleted) error { return p.OnProductDeleted(ctx, productID) })
}

// EmitStockAdjusted emits a stock adjusted notification.
func (r *Registry) EmitStockAdjusted(ctx context.Context, productID id.ProductID, delta, stock int64) {
	emit(ctx, r, "OnStockAdjusted", func(r *Registry) []OnStockAdjusted { return r.onStockAdjusted },
		func(p OnStockAdjusted) error { return p.OnStockAdjusted(ctx, productID, delta, stock) })
}

// EmitSaleRecorded emits a sale recorded notification.
func (r *Registry) EmitSaleRecorded(ctx context.Context, s *sale.Sale) {
	emit(ctx, r, "OnSaleRecorded", func(r *Registry) []OnSaleRecorded { return r.onSaleRecorded },
		func(p OnSaleRecorded) error { return p.OnSaleRecorded(ctx, s) })
}

// EmitSaleCommitted emits a sale committed notification.
func (r *Registry) EmitSaleCommitted(ctx context.Context, s *sale.Sale) {
	emit(ctx, r, "OnSaleCommitted", func(r *Registry) []OnSaleCommitted { return r.onSaleCommitted },
		func(p OnSaleCommitted) error { return p.OnSaleCommitted(ctx, s) })
}

// EmitSaleRejected emits a sale rejected notification.
func (r *Registry) EmitSaleRejected(ctx context.Context, s *sale.Sale, reason error) {
	emit(ctx, r, "OnSaleRejected", func(r *Registry) []OnSaleRejected { return r.onSaleRejected },
		func(p OnSaleRejected) error { return p.OnSaleRejected(ctx, s, reason) })
}

// EmitSaleCancelled emits a sale cancelled notification.
func (r *Registry) EmitSaleCancelled(ctx context.Context, s *sale.Sale, restocked bool) {
	emit(ctx, r, "OnSaleCancelled", func(r *Registry) []OnSaleCancelled { return r.onSaleCancelled },
		func(p OnSaleCancelled) error { return p.OnSaleCancelled(ctx, s, restocked) })
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block a checkout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
