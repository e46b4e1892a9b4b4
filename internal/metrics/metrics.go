// Package metrics exposes Prometheus instrumentation for the plex client and
// the transcode lifecycle. Nothing registers globally; callers pass the
// registry they want to export.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"plexctl/internal/plex"
)

const namespace = "plexctl"

// Recorder implements transcode.Recorder and plex.RequestObserver.
type Recorder struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	decisions        *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	downloads        *prometheus.CounterVec
	downloadBytes    prometheus.Counter
	cancels          *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests sent to the media server by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time until response headers arrived, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_decisions_total",
			Help:      "Transcode decisions by profile, protocol and outcome.",
		}, []string{"profile", "protocol", "outcome"}),
		decisionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_decision_duration_seconds",
			Help:      "Duration of the decision exchange.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"profile"}),
		downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_downloads_total",
			Help:      "Transcoded payload downloads by outcome.",
		}, []string{"outcome"}),
		downloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_download_bytes_total",
			Help:      "Bytes of transcoded payload written to callers.",
		}),
		cancels: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_cancels_total",
			Help:      "Session cancellations by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveRequest matches plex.RequestObserver. Status zero means the
// transport failed and is reported as code "error".
func (r *Recorder) ObserveRequest(route string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	r.requests.WithLabelValues(route, code).Inc()
	r.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveDecision(profile string, protocol plex.Protocol, outcome string, elapsed time.Duration) {
	r.decisions.WithLabelValues(profile, protocol.String(), outcome).Inc()
	r.decisionDuration.WithLabelValues(profile).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveDownload(outcome string, bytes int64) {
	r.downloads.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		r.downloadBytes.Add(float64(bytes))
	}
}

func (r *Recorder) ObserveCancel(outcome string) {
	r.cancels.WithLabelValues(outcome).Inc()
}

// WriteTextfile dumps every metric gathered by g to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
