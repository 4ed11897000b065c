package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "hl_chase_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_placed_total",
		Help:      "Total number of chase orders placed.",
	})
	modifiesSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "modifies_submitted_total",
		Help:      "Total number of reprice modifies submitted.",
	})
	modifiesRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "modifies_rejected_total",
		Help:      "Total number of reprice modifies rejected by the venue.",
	})
	fillsApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "fills_applied_total",
		Help:      "Total number of fills applied to the chase size.",
	})

	registry.MustRegister(ordersPlaced, modifiesSubmitted, modifiesRejected, fillsApplied)

	return &Prometheus{
		Metrics: &Metrics{
			OrdersPlaced:      promCounter{ordersPlaced},
			ModifiesSubmitted: promCounter{modifiesSubmitted},
			ModifiesRejected:  promCounter{modifiesRejected},
			FillsApplied:      promCounter{fillsApplied},
		},
		registry: registry,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
