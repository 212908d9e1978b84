package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	FramesIngested   prometheus.Counter
	BytesIngested    prometheus.Counter
	AnalysisFailures prometheus.Counter
	ActiveViewers    prometheus.Gauge
	RoastsGenerated  prometheus.Counter
	TTSRequests      prometheus.Counter
	TTSFailures      prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		FramesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frames_ingested_total",
			Help: "Total camera frames accepted for buffering",
		}),
		BytesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingested_bytes_total",
			Help: "Total decoded frame bytes accepted for buffering",
		}),
		AnalysisFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analysis_failures_total",
			Help: "Total frames stored without a usable face analysis",
		}),
		ActiveViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mjpeg_active_viewers",
			Help: "Currently connected MJPEG viewers across all streams",
		}),
		RoastsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roasts_generated_total",
			Help: "Total roasts produced by the LLM backend",
		}),
		TTSRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tts_requests_total",
			Help: "Total text-to-speech synthesis attempts",
		}),
		TTSFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tts_failures_total",
			Help: "Total text-to-speech attempts that fell back to text",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FramesIngested,
		m.BytesIngested,
		m.AnalysisFailures,
		m.ActiveViewers,
		m.RoastsGenerated,
		m.TTSRequests,
		m.TTSFailures,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
