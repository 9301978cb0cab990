// Package metrics exposes normalized container stats and classifier
// results as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rusenback/erpmon/internal/model"
)

const namespace = "erpmon"

// Exporter owns a private registry so tests and multiple instances do not
// collide on the default one.
type Exporter struct {
	registry *prometheus.Registry

	cpuPercent    *prometheus.GaugeVec
	memoryPercent *prometheus.GaugeVec
	memoryUsage   *prometheus.GaugeVec
	memoryLimit   *prometheus.GaugeVec
	networkRx     *prometheus.GaugeVec
	networkTx     *prometheus.GaugeVec
	degraded      *prometheus.GaugeVec
	diagnoses     *prometheus.CounterVec
}

// NewExporter creates and registers all collectors.
func NewExporter() *Exporter {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      name,
			Help:      help,
		}, []string{"container"})
	}

	e := &Exporter{
		registry:      prometheus.NewRegistry(),
		cpuPercent:    gauge("cpu_percent", "CPU usage in percent of the host, clamped to 0-100."),
		memoryPercent: gauge("memory_percent", "Memory usage in percent of the limit."),
		memoryUsage:   gauge("memory_usage_bytes", "Memory in use, excluding reclaimable cache."),
		memoryLimit:   gauge("memory_limit_bytes", "Memory limit reported for the container."),
		networkRx:     gauge("network_rx_bytes", "Bytes received on the primary interface."),
		networkTx:     gauge("network_tx_bytes", "Bytes transmitted on the primary interface."),
		degraded:      gauge("stats_degraded", "1 when the last sample was derived from incomplete counters."),
		diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_diagnoses_total",
			Help:      "Network failure diagnoses produced from failed deployments.",
		}, []string{"type", "severity"}),
	}

	e.registry.MustRegister(
		e.cpuPercent, e.memoryPercent, e.memoryUsage, e.memoryLimit,
		e.networkRx, e.networkTx, e.degraded, e.diagnoses,
	)
	return e
}

// Observe records the latest normalized sample for a container.
func (e *Exporter) Observe(container string, s model.NormalizedStats) {
	e.cpuPercent.WithLabelValues(container).Set(s.CPUPercent)
	e.memoryPercent.WithLabelValues(container).Set(s.MemoryPercent)
	e.memoryUsage.WithLabelValues(container).Set(float64(s.MemoryUsageBytes))
	e.memoryLimit.WithLabelValues(container).Set(float64(s.MemoryLimitBytes))
	e.networkRx.WithLabelValues(container).Set(float64(s.NetworkRxBytes))
	e.networkTx.WithLabelValues(container).Set(float64(s.NetworkTxBytes))

	degraded := 0.0
	if s.Degraded() {
		degraded = 1
	}
	e.degraded.WithLabelValues(container).Set(degraded)
}

// ObserveDiagnosis counts a diagnosis. Nil is ignored.
func (e *Exporter) ObserveDiagnosis(d *model.ErrorDiagnosis) {
	if d == nil {
		return
	}
	e.diagnoses.WithLabelValues(string(d.Type), string(d.Severity)).Inc()
}

// Forget drops the series of a container that no longer exists.
func (e *Exporter) Forget(container string) {
	for _, g := range []*prometheus.GaugeVec{
		e.cpuPercent, e.memoryPercent, e.memoryUsage, e.memoryLimit,
		e.networkRx, e.networkTx, e.degraded,
	} {
		g.DeleteLabelValues(container)
	}
}

// Registry returns the exporter's registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
