// Package metrics exposes Prometheus counters for file and share operations.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters and the registry they live in.
type Metrics struct {
	reg *prometheus.Registry

	uploads       *prometheus.CounterVec
	uploadBytes   prometheus.Counter
	downloads     *prometheus.CounterVec
	deletes       *prometheus.CounterVec
	shareResolves *prometheus.CounterVec
	shareLinks    *prometheus.GaugeVec
}

// New creates a registry with Go and process collectors plus the service counters.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratafiles_uploads_total",
			Help: "File uploads by result.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratafiles_upload_bytes_total",
			Help: "Bytes written to the object store by uploads.",
		}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratafiles_downloads_total",
			Help: "File downloads by result.",
		}, []string{"result"}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratafiles_deletes_total",
			Help: "Soft deletes, restores and purges by operation.",
		}, []string{"op"}),
		shareResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratafiles_share_resolutions_total",
			Help: "Share token resolutions by result.",
		}, []string{"result"}),
		shareLinks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stratafiles_share_links",
			Help: "Share links by derived state (active, expired, exhausted, revoked).",
		}, []string{"state"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.uploads, m.uploadBytes, m.downloads, m.deletes, m.shareResolves, m.shareLinks,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Upload(result string, bytes int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
	if result == "ok" {
		m.uploadBytes.Add(float64(bytes))
	}
}

func (m *Metrics) Download(result string) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(result).Inc()
}

func (m *Metrics) Delete(op string) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(op).Inc()
}

func (m *Metrics) ShareResolve(result string) {
	if m == nil {
		return
	}
	m.shareResolves.WithLabelValues(result).Inc()
}

// ShareLinks sets the gauge for one share link state.
func (m *Metrics) ShareLinks(state string, n int64) {
	if m == nil {
		return
	}
	m.shareLinks.WithLabelValues(state).Set(float64(n))
}
