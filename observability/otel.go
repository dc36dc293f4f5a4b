package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// NewOTelFactory returns a MetricFactory that creates OpenTelemetry
// instruments on meter. Instrument creation errors go to the global
// OpenTelemetry error handler; the returned instrument is then a no-op.
func NewOTelFactory(meter metric.Meter) MetricFactory {
	return &otelFactory{meter: meter}
}

type otelFactory struct {
	meter metric.Meter
}

func (f *otelFactory) Counter(name string) Counter {
	c, err := f.meter.Float64Counter(name)
	if err != nil {
		otel.Handle(err)
	}
	return &otelCounter{c: c}
}

func (f *otelFactory) Histogram(name string) Histogram {
	h, err := f.meter.Float64Histogram(name)
	if err != nil {
		otel.Handle(err)
	}
	return &otelHistogram{h: h}
}

type otelCounter struct {
	c metric.Float64Counter
}

func (c *otelCounter) Inc() { c.Add(1) }

func (c *otelCounter) Add(v float64) {
	if c.c != nil {
		c.c.Add(context.Background(), v)
	}
}

type otelHistogram struct {
	h metric.Float64Histogram
}

func (h *otelHistogram) Observe(v float64) {
	if h.h != nil {
		h.h.Record(context.Background(), v)
	}
}
