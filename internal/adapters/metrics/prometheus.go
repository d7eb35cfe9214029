package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"campushub/internal/domain"
)

const namespace = "campushub"

// Collector exposes registration, store, retention and HTTP metrics.
type Collector struct {
	registrations *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	storeRetries  *prometheus.CounterVec
	swept         *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

var _ domain.RegistrationMetrics = (*Collector)(nil)

// NewCollector registers the counters on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_created_total",
				Help:      "Registrations created, by partition and registration path.",
			},
			[]string{"partition", "path"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_rejected_total",
				Help:      "Registration attempts rejected, by reason.",
			},
			[]string{"reason"},
		),
		storeRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_retries_total",
				Help:      "Store calls retried after a transient failure, by operation.",
			},
			[]string{"op"},
		),
		swept: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retention_swept_total",
				Help:      "Expired guest records deleted by the retention sweep, by collection.",
			},
			[]string{"collection"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency, by method, route pattern and status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (c *Collector) RegistrationCreated(partition domain.Partition, path string) {
	c.registrations.WithLabelValues(string(partition), path).Inc()
}

func (c *Collector) RegistrationRejected(reason string) {
	c.rejections.WithLabelValues(reason).Inc()
}

func (c *Collector) StoreRetry(op string) {
	c.storeRetries.WithLabelValues(op).Inc()
}

func (c *Collector) GuestRecordsSwept(collection string, n int64) {
	c.swept.WithLabelValues(collection).Add(float64(n))
}

func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
