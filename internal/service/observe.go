package service

import (
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wedding/guesthub/internal/events"
	"wedding/guesthub/pkg/metrics"
)

var tracer = otel.Tracer("wedding/guesthub/internal/service")

// notifier emits bus events and counts them.
type notifier struct {
	bus     *events.Bus
	metrics *metrics.Metrics
}

func (n notifier) emit(e events.Event) {
	n.bus.Emit(e)
	n.metrics.EventsEmitted.WithLabelValues(string(e.Type)).Inc()
}

func (n notifier) observe(operation string, start time.Time) {
	n.metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// cleanList trims entries and drops blanks.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
