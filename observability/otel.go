package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// InstrumentationName identifies till's meter and tracer.
const InstrumentationName = "github.com/xraph/till"

// OTelFactory is a MetricFactory backed by an OpenTelemetry meter.
// Counters map to Float64Counter and histograms to Float64Histogram.
type OTelFactory struct {
	meter metric.Meter
}

// NewOTelFactory creates a factory over meter. A nil meter uses the global
// meter provider.
func NewOTelFactory(meter metric.Meter) *OTelFactory {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}
	return &OTelFactory{meter: meter}
}

// Counter implements MetricFactory. An instrument the meter refuses falls
// back to a no-op so recording never fails.
func (f *OTelFactory) Counter(name string) Counter {
	c, err := f.meter.Float64Counter(name)
	if err != nil {
		c, _ = noop.NewMeterProvider().Meter(InstrumentationName).Float64Counter(name)
	}
	return otelCounter{c: c}
}

// Histogram implements MetricFactory.
func (f *OTelFactory) Histogram(name string) Histogram {
	h, err := f.meter.Float64Histogram(name)
	if err != nil {
		h, _ = noop.NewMeterProvider().Meter(InstrumentationName).Float64Histogram(name)
	}
	return otelHistogram{h: h}
}

type otelCounter struct {
	c metric.Float64Counter
}

func (o otelCounter) Inc()          { o.c.Add(context.Background(), 1) }
func (o otelCounter) Add(v float64) { o.c.Add(context.Background(), v) }

type otelHistogram struct {
	h metric.Float64Histogram
}

func (o otelHistogram) Observe(v float64) { o.h.Record(context.Background(), v) }
