package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogMetrics exposes counters/histograms for dialog turn processing.
type DialogMetrics struct {
	turnsTotal       *prometheus.CounterVec
	stepAdvances     *prometheus.CounterVec
	repromptsTotal   *prometheus.CounterVec
	externalFailures *prometheus.CounterVec
	turnLatency      prometheus.Histogram
}

func NewDialogMetrics(reg prometheus.Registerer) *DialogMetrics {
	m := &DialogMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medy",
			Subsystem: "dialog",
			Name:      "turns_total",
			Help:      "Total processed dialog turns",
		}, []string{"result"}),
		stepAdvances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medy",
			Subsystem: "dialog",
			Name:      "step_advances_total",
			Help:      "Total waterfall step advances",
		}, []string{"dialog"}),
		repromptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medy",
			Subsystem: "dialog",
			Name:      "reprompts_total",
			Help:      "Total prompts re-issued after a failed reply validation",
		}, []string{"dialog", "prompt"}),
		externalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medy",
			Subsystem: "dialog",
			Name:      "external_call_failures_total",
			Help:      "Total failures of external collaborators",
		}, []string{"collaborator"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medy",
			Subsystem: "dialog",
			Name:      "turn_latency_seconds",
			Help:      "Latency of dialog turn processing",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.stepAdvances, m.repromptsTotal, m.externalFailures, m.turnLatency)
	return m
}

func (m *DialogMetrics) ObserveTurn(result string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(result).Inc()
	m.turnLatency.Observe(seconds)
}

func (m *DialogMetrics) ObserveStepAdvance(dialogID string) {
	if m == nil {
		return
	}
	m.stepAdvances.WithLabelValues(dialogID).Inc()
}

func (m *DialogMetrics) ObserveReprompt(dialogID, prompt string) {
	if m == nil {
		return
	}
	m.repromptsTotal.WithLabelValues(dialogID, prompt).Inc()
}

func (m *DialogMetrics) ObserveExternalFailure(collaborator string) {
	if m == nil {
		return
	}
	m.externalFailures.WithLabelValues(collaborator).Inc()
}
