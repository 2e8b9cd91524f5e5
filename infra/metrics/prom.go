package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/rvigier/loadshift/core/metrics"
	"github.com/rvigier/loadshift/core/model"
)

// PromSink records planner activity in Prometheus metrics.
type PromSink struct {
	solves   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	ec       *prometheus.GaugeVec
	pl       *prometheus.GaugeVec
}

// NewPromSink registers planner metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_solves_total",
		Help: "Total number of solver invocations",
	}, []string{"approach", "phase", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_solve_duration_seconds",
		Help:    "Wall-clock duration of solver invocations",
		Buckets: prometheus.DefBuckets,
	}, []string{"approach", "phase", "status"})
	ec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "planner_electricity_cost",
		Help: "Extracted electricity cost per approach",
	}, []string{"approach"})
	pl := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "planner_peak_load_kw",
		Help: "Extracted peak load per approach",
	}, []string{"approach"})

	for _, c := range []prometheus.Collector{solves, duration, ec, pl} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{solves: solves, duration: duration, ec: ec, pl: pl}, nil
}

// RecordSolve counts the invocation and observes its duration.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.Approach, ev.Phase, ev.Status).Inc()
	s.duration.WithLabelValues(ev.Approach, ev.Phase, ev.Status).Observe(ev.Duration.Seconds())
	return nil
}

// RecordResult exposes the extracted objective values.
func (s *PromSink) RecordResult(res *model.Result) error {
	s.ec.WithLabelValues(res.Approach).Set(res.EC)
	s.pl.WithLabelValues(res.Approach).Set(res.PL)
	return nil
}
