package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	MessagesTotal         = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_messages_total", Help: "Normalized book messages by venue and kind"}, []string{"venue", "kind"})
	MessagesDroppedTotal  = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_messages_dropped_total", Help: "Messages dropped before reaching the book, by venue and reason"}, []string{"venue", "reason"})
	MalformedLevelsTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_malformed_levels_total", Help: "Levels dropped during reconciliation for unparseable price or quantity"})
	WSReconnectsTotal     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ws_reconnects_total", Help: "WS reconnects by venue and reason"}, []string{"venue", "reason"})
	SubscriptionSwitches  = prometheus.NewCounter(prometheus.CounterOpts{Name: "subscription_switches_total", Help: "Venue/symbol switches"})
	ConnectionUp          = prometheus.NewGauge(prometheus.GaugeOpts{Name: "feed_connection_up", Help: "1 while the venue stream is connected"})
	BookDepth             = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "book_depth_levels", Help: "Resting price levels by side"}, []string{"side"})
	ApplyLatencyMs        = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "book_apply_latency_ms", Help: "Snapshot/delta apply latency", Buckets: prometheus.ExponentialBuckets(0.01, 2, 14)})
	SimulationsTotal      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "simulations_total", Help: "Impact simulations by order type"}, []string{"type"})
	SimulationRejects     = prometheus.NewCounter(prometheus.CounterOpts{Name: "simulation_rejects_total", Help: "Simulated orders rejected at input validation"})
)

func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		MessagesTotal, MessagesDroppedTotal, MalformedLevelsTotal,
		WSReconnectsTotal, SubscriptionSwitches, ConnectionUp,
		BookDepth, ApplyLatencyMs, SimulationsTotal, SimulationRejects,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
