package metricsvc

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/payment"
)

// Collector exposes ledger and HTTP metrics to prometheus.
type Collector struct {
	settlements *prometheus.CounterVec
	collected   *prometheus.CounterVec
	lateFines   prometheus.Counter
	rejections  *prometheus.CounterVec
	requests    *prometheus.HistogramVec
}

var _ payment.Recorder = (*Collector)(nil)

// NewCollector registers the collector metrics with registerer, defaulting to prometheus.DefaultRegisterer.
func NewCollector(registerer prometheus.Registerer, conf *core.Config) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := prometheus.Labels{"env": conf.Env}

	c := &Collector{
		settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "bursary_settlements_total",
				Help:        "Fee settlements recorded in the ledger.",
				ConstLabels: constLabels,
			},
			[]string{"method"},
		),
		collected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "bursary_collected_amount_total",
				Help:        "Money collected through settlements, late fines included.",
				ConstLabels: constLabels,
			},
			[]string{"method"},
		),
		lateFines: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "bursary_late_fines_amount_total",
				Help:        "Late fines collected through settlements.",
				ConstLabels: constLabels,
			},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "bursary_settlement_rejections_total",
				Help:        "Settlements rejected, by error code.",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		requests: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "bursary_http_request_duration_seconds",
				Help:        "Duration of HTTP requests.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"method", "route", "status"},
		),
	}
	registerer.MustRegister(c.settlements, c.collected, c.lateFines, c.rejections, c.requests)
	return c
}

func (c *Collector) Settled(p payment.Payment) {
	method := string(p.PaymentMethod)
	c.settlements.WithLabelValues(method).Inc()
	total, _ := p.TotalAmount.Float64()
	c.collected.WithLabelValues(method).Add(total)
	fine, _ := p.LateFine.Float64()
	c.lateFines.Add(fine)
}

func (c *Collector) Rejected(reason string) {
	c.rejections.WithLabelValues(reason).Inc()
}

// ObserveRequest records the duration of an HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
