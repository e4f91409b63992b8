package playback

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/metcalfc/readaloud/internal/playback"

type metrics struct {
	segments  metric.Int64Counter
	fallbacks metric.Int64Counter
	stale     metric.Int64Counter
	writes    metric.Int64Counter
}

func newMetrics() *metrics {
	m := otel.Meter(meterName)
	segments, _ := m.Int64Counter("readaloud.playback.segments_spoken",
		metric.WithDescription("Narration units dispatched to a backend"))
	fallbacks, _ := m.Int64Counter("readaloud.playback.backend_fallbacks",
		metric.WithDescription("Switches from the remote backend to the system voice"))
	stale, _ := m.Int64Counter("readaloud.playback.stale_callbacks_dropped",
		metric.WithDescription("Backend events discarded because their session was superseded"))
	writes, _ := m.Int64Counter("readaloud.playback.progress_writes",
		metric.WithDescription("Reading position writes"))
	return &metrics{segments: segments, fallbacks: fallbacks, stale: stale, writes: writes}
}

func (m *metrics) segment(backend string) {
	m.segments.Add(context.Background(), 1, metric.WithAttributes(attribute.String("backend", backend)))
}

func (m *metrics) fallback() {
	m.fallbacks.Add(context.Background(), 1)
}

func (m *metrics) dropped(kind string) {
	m.stale.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", kind)))
}

func (m *metrics) write(reason string) {
	m.writes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}
