package observability_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/till"
	"github.com/xraph/till/clock"
	"github.com/xraph/till/observability"
	"github.com/xraph/till/store/memory"
)

type counter struct {
	mu sync.Mutex
	v  float64
}

func (c *counter) Inc()          { c.Add(1) }
func (c *counter) Add(v float64) { c.mu.Lock(); c.v += v; c.mu.Unlock() }
func (c *counter) value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

type histogram struct {
	mu  sync.Mutex
	obs []float64
}

func (h *histogram) Observe(v float64) { h.mu.Lock(); h.obs = append(h.obs, v); h.mu.Unlock() }

type factory struct {
	counters   map[string]*counter
	histograms map[string]*histogram
}

func newFactory() *factory {
	return &factory{counters: map[string]*counter{}, histograms: map[string]*histogram{}}
}

func (f *factory) Counter(name string) observability.Counter {
	c := &counter{}
	f.counters[name] = c
	return c
}

func (f *factory) Histogram(name string) observability.Histogram {
	h := &histogram{}
	f.histograms[name] = h
	return h
}

// recordingSpan captures events added by the tracing extension.
type recordingSpan struct {
	trace.Span

	mu     sync.Mutex
	events []string
	status codes.Code
}

func (s *recordingSpan) IsRecording() bool { return true }

func (s *recordingSpan) AddEvent(name string, _ ...trace.EventOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *recordingSpan) snapshot() ([]string, codes.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out, s.status
}

func newTill(t *testing.T, opts ...till.Option) *till.Till {
	t.Helper()
	opts = append(opts,
		till.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		till.WithClock(clock.NewFixed(time.Date(2025, 4, 5, 1, 0, 0, 0, time.UTC))),
	)
	tl := till.New(memory.New(), opts...)
	require.NoError(t, tl.Start(context.Background()))
	t.Cleanup(func() { _ = tl.Stop() })
	return tl
}

func TestMetricsExtension(t *testing.T) {
	ctx := context.Background()
	f := newFactory()
	tl := newTill(t,
		till.WithPlugin(observability.NewMetricsExtension(f)),
		till.WithRestockOnCancel(true),
	)

	eventID, err := tl.CreateEvent(ctx, "Spring Fair", "2025-04-05")
	require.NoError(t, err)
	productID, err := tl.AddProduct(ctx, eventID, "Cookie", 150, 10)
	require.NoError(t, err)

	saleID, err := tl.CommitSale(ctx, eventID, productID, 3, 450)
	require.NoError(t, err)
	_, err = tl.CommitSale(ctx, eventID, productID, 50, 7500)
	require.ErrorIs(t, err, till.ErrInsufficientStock)
	_, err = tl.CancelSale(ctx, saleID)
	require.NoError(t, err)
	_, err = tl.AdjustStock(ctx, productID, -2)
	require.NoError(t, err)

	assert.Equal(t, 1.0, f.counters["till.event.created"].value())
	assert.Equal(t, 1.0, f.counters["till.product.added"].value())
	assert.Equal(t, 1.0, f.counters["till.sale.committed"].value())
	assert.Equal(t, 3.0, f.counters["till.sale.units"].value())
	assert.Equal(t, 450.0, f.counters["till.sale.revenue"].value())
	assert.Equal(t, 1.0, f.counters["till.sale.rejected.out_of_stock"].value())
	assert.Equal(t, 0.0, f.counters["till.sale.rejected.no_product"].value())
	assert.Equal(t, 1.0, f.counters["till.sale.cancelled"].value())
	assert.Equal(t, 450.0, f.counters["till.sale.revenue_reversed"].value())
	assert.Equal(t, 3.0, f.counters["till.stock.restocked"].value())
	assert.Equal(t, []float64{-2}, f.histograms["till.stock.delta"].obs)
}

func TestOTelFactory(t *testing.T) {
	f := observability.NewOTelFactory(noop.NewMeterProvider().Meter("test"))
	ext := observability.NewMetricsExtension(f)

	assert.NotPanics(t, func() {
		ext.SalesCommitted.Inc()
		ext.Revenue.Add(1200)
		ext.SaleAmount.Observe(1200)
	})
}

func TestOTelFactoryGlobalMeter(t *testing.T) {
	assert.NotNil(t, observability.NewOTelFactory(nil).Counter("till.test"))
}

func TestTracingExtension(t *testing.T) {
	span := &recordingSpan{Span: trace.SpanFromContext(context.Background())}
	ctx := trace.ContextWithSpan(context.Background(), span)

	tl := newTill(t, till.WithPlugin(observability.NewTracingExtension()))

	eventID, err := tl.CreateEvent(ctx, "Spring Fair", "2025-04-05")
	require.NoError(t, err)
	productID, err := tl.AddProduct(ctx, eventID, "Mug", 1200, 1)
	require.NoError(t, err)
	_, err = tl.CommitSale(ctx, eventID, productID, 1, 1200)
	require.NoError(t, err)
	_, err = tl.CommitSale(ctx, eventID, productID, 1, 1200)
	require.ErrorIs(t, err, till.ErrInsufficientStock)

	events, status := span.snapshot()
	assert.Equal(t, []string{
		"till.event.created",
		"till.product.added",
		"till.sale.committed",
		"till.sale.rejected",
	}, events)
	assert.Equal(t, codes.Error, status)
}

func TestTracingWithoutSpan(t *testing.T) {
	tl := newTill(t, till.WithPlugin(observability.NewTracingExtension()))
	_, err := tl.CreateEvent(context.Background(), "Fair", "2025-04-05")
	assert.NoError(t, err)
}
