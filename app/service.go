package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rvigier/loadshift/config"
	"github.com/rvigier/loadshift/core/logger"
	coremetrics "github.com/rvigier/loadshift/core/metrics"
	"github.com/rvigier/loadshift/core/milp"
	"github.com/rvigier/loadshift/core/model"
	"github.com/rvigier/loadshift/core/schedule"
	"github.com/rvigier/loadshift/infra/lpsolve"
	infralogger "github.com/rvigier/loadshift/infra/logger"
	"github.com/rvigier/loadshift/infra/metrics"
	"github.com/rvigier/loadshift/infra/mqtt"
	"github.com/rvigier/loadshift/infra/relax"
	"github.com/rvigier/loadshift/infra/store"
)

// Service runs the full planning batch: load parameters, solve the
// configured approaches, persist and publish the outcome. The store is held
// through the core's port interfaces; only Close needs the concrete type.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	source  schedule.ParameterSource
	results schedule.ResultStore
	store   *store.SQLiteStore
	sink    coremetrics.Sink
	solver  milp.Solver
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	log := infralogger.New("service")

	st, err := store.NewSQLiteStore(cfg.Store, infralogger.New("store"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Influx.Enabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics.Influx, infralogger.New("influx-sink")))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	return &Service{
		cfg:     cfg,
		log:     log,
		source:  st,
		results: st,
		store:   st,
		sink:    sink,
		solver:  lpsolve.New(cfg.Solver, infralogger.New("lpsolve")),
	}, nil
}

// Close releases held resources.
func (s *Service) Close() error {
	return s.store.Close()
}

// Run executes the configured plan. A failed approach is reported and left
// out of the comparison; Run only errors when no approach succeeds or the
// surrounding plumbing fails.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.PrometheusEnabled && s.cfg.Metrics.PrometheusPort != "" {
		go s.serveMetrics()
	}

	params, err := s.source.LoadParameters(ctx)
	if err != nil {
		return fmt.Errorf("load parameters: %w", err)
	}
	s.log.Infof("loaded parameters: %d machines, %d slots, %d systems",
		params.Machines, params.Slots, params.Systems)

	if s.cfg.Plan.RelaxationBounds {
		s.logRelaxationBounds(ctx, params)
	}

	planner, err := schedule.NewPlanner(params, s.solver, s.cfg.Schedule, s.sink, infralogger.New("planner"))
	if err != nil {
		return err
	}

	results := s.runApproaches(ctx, planner)
	if len(results) == 0 {
		return errors.New("no approach produced a feasible schedule")
	}

	rows := make([]model.ComparisonRow, 0, len(results))
	for _, res := range results {
		rows = append(rows, model.ComparisonRow{Approach: res.Approach, EC: res.EC, PL: res.PL})
		if err := s.results.SaveResult(ctx, res); err != nil {
			return fmt.Errorf("persist %s: %w", res.Approach, err)
		}
		s.log.Infof("%s", res.Summary())
	}
	if err := s.results.SaveComparison(ctx, rows); err != nil {
		return fmt.Errorf("persist comparison: %w", err)
	}

	if s.cfg.MQTT.Enabled {
		if err := s.publishSelected(ctx, results); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) runApproaches(ctx context.Context, planner *schedule.Planner) []*model.Result {
	var results []*model.Result
	for _, approach := range s.cfg.Plan.Approaches {
		var res *model.Result
		var err error
		switch approach {
		case schedule.ApproachECFirst:
			res, err = planner.ECFirst(ctx)
		case schedule.ApproachPLFirst:
			res, err = planner.PLFirst(ctx)
		case schedule.ApproachWeightedSum:
			res, err = planner.WeightedSum(ctx, s.cfg.Plan.WeightedSum)
		case schedule.ApproachCompromise:
			res, err = planner.Compromise(ctx, s.cfg.Plan.Compromise)
		}
		if err != nil {
			s.log.Warnf("%s produced no result: %v", approach, err)
			continue
		}
		results = append(results, res)
	}
	return results
}

// logRelaxationBounds solves the continuous relaxation of both
// single-objective problems. The bounds are diagnostics only; fractional
// relaxed schedules are never used.
func (s *Service) logRelaxationBounds(ctx context.Context, params model.Parameters) {
	rx := &relax.Solver{}
	obj := schedule.NewObjectiveManager(params, rx, s.cfg.Schedule.Calibration,
		coremetrics.NopSink{}, infralogger.NopLogger{})
	if ec, err := obj.IdealEC(ctx); err == nil {
		s.log.Infof("relaxation lower bound: EC >= %.4f", ec)
	} else {
		s.log.Debugf("EC relaxation bound unavailable: %v", err)
	}
	if pl, err := obj.IdealPL(ctx); err == nil {
		s.log.Infof("relaxation lower bound: PL >= %.4f", pl)
	} else {
		s.log.Debugf("PL relaxation bound unavailable: %v", err)
	}
}

func (s *Service) publishSelected(ctx context.Context, results []*model.Result) error {
	selected := results[0]
	for _, res := range results {
		if res.Approach == s.cfg.Plan.Publish {
			selected = res
			break
		}
	}

	pub, err := mqtt.NewSchedulePublisher(s.cfg.MQTT, infralogger.New("mqtt-publisher"))
	if err != nil {
		return fmt.Errorf("mqtt publisher: %w", err)
	}
	defer pub.Close()

	var publisher schedule.SchedulePublisher = pub
	if err := publisher.PublishSchedule(ctx, selected); err != nil {
		return fmt.Errorf("publish %s: %w", selected.Approach, err)
	}
	return nil
}

func (s *Service) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              ":" + s.cfg.Metrics.PrometheusPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Errorf("metrics server: %v", err)
	}
}
