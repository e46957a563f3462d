package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	templateRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "template_producer",
		Name:      "refresh_total",
		Help:      "Count of block template refresh attempts.",
	}, []string{"trigger", "status"})

	templateRefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "template_producer",
		Name:      "refresh_duration_seconds",
		Help:      "Duration of a fetch-and-publish template refresh.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"trigger", "status"})

	templateVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "template_producer",
		Name:      "version",
		Help:      "Version of the last template written to the shared cache.",
	})

	templateHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "template_producer",
		Name:      "height",
		Help:      "Height of the last template written to the shared cache.",
	})
)

// TemplateProducer tracks metrics for the template refresh loop.
type TemplateProducer struct{}

func NewTemplateProducer() *TemplateProducer {
	return &TemplateProducer{}
}

// ObserveRefresh records a refresh outcome labelled by what triggered it.
func (m TemplateProducer) ObserveRefresh(trigger string, err error, started time.Time) {
	status := statusOf(err)
	templateRefreshTotal.WithLabelValues(trigger, status).Inc()
	templateRefreshDuration.WithLabelValues(trigger, status).Observe(time.Since(started).Seconds())
}

// SetTemplate publishes the version and height now in the cache.
func (m TemplateProducer) SetTemplate(version, height uint64) {
	templateVersion.Set(float64(version))
	templateHeight.Set(float64(height))
}
