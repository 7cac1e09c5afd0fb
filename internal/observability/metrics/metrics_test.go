package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDialogMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDialogMetrics(reg)
	m.ObserveTurn("suspended", 0.02)
	m.ObserveStepAdvance("purchase")
	m.ObserveReprompt("image-intake", "image")
	m.ObserveExternalFailure("image_analyzer")
}

func TestDialogMetricsNilSafe(t *testing.T) {
	var m *DialogMetrics
	m.ObserveTurn("error", 0.1)
	m.ObserveStepAdvance("purchase")
	m.ObserveReprompt("purchase", "confirm")
	m.ObserveExternalFailure("cart")
}
