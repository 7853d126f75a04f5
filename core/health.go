package core

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// HealthLogger exposes the node's vital signs as Prometheus gauges and
// structured logrus events. Grounded on the teacher's
// core/system_health_logging.go HealthLogger (ledger/network/coin/txpool
// fields replaced here by Orchestrator accessor calls, since Orchestrator
// already owns all of that state behind one guard).
type HealthLogger struct {
	orch *Orchestrator
	log  *log.Logger

	registry       *prometheus.Registry
	heightGauge    prometheus.Gauge
	pendingTxGauge prometheus.Gauge
	peerCountGauge prometheus.Gauge
	errorCounter   prometheus.Counter
}

// NewHealthLogger builds a HealthLogger with its own Prometheus registry
// (not the global default, so multiple nodes in one process/test binary
// don't collide on metric registration).
func NewHealthLogger(orch *Orchestrator) *HealthLogger {
	reg := prometheus.NewRegistry()

	height := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ironledger_chain_height",
		Help: "Index of the current chain tip.",
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ironledger_mempool_size",
		Help: "Number of transactions currently pending in the mempool.",
	})
	peers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ironledger_peer_count",
		Help: "Number of known gossip peers.",
	})
	errs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ironledger_errors_total",
		Help: "Count of errors logged through the health logger.",
	})
	reg.MustRegister(height, pending, peers, errs)

	return &HealthLogger{
		orch:           orch,
		log:            log.StandardLogger(),
		registry:       reg,
		heightGauge:    height,
		pendingTxGauge: pending,
		peerCountGauge: peers,
		errorCounter:   errs,
	}
}

// RecordMetrics snapshots the orchestrator's current state into the gauges.
func (h *HealthLogger) RecordMetrics() {
	info := h.orch.Info()
	h.heightGauge.Set(float64(info.TipIndex))
	h.pendingTxGauge.Set(float64(len(h.orch.PendingTransactions())))
	h.peerCountGauge.Set(float64(info.PeerCount))
}

// RunMetricsCollector ticks RecordMetrics every interval until ctx is
// cancelled.
func (h *HealthLogger) RunMetricsCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.RecordMetrics()
		}
	}
}

// LogEvent emits a structured logrus event at the given level.
func (h *HealthLogger) LogEvent(level log.Level, msg string, fields log.Fields) {
	h.log.WithFields(fields).Log(level, msg)
}

// IncError increments the error counter, for callers that want a metric
// alongside a logged error.
func (h *HealthLogger) IncError() { h.errorCounter.Inc() }

// Handler returns the /metrics HTTP handler for this logger's registry.
func (h *HealthLogger) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer starts a dedicated HTTP server serving /metrics on
// addr and returns it so the caller can Shutdown it later.
func (h *HealthLogger) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.log.WithError(err).Error("health: metrics server failed")
		}
	}()
	return srv
}
