package schedule

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rvigier/loadshift/core/logger"
	coremetrics "github.com/rvigier/loadshift/core/metrics"
	"github.com/rvigier/loadshift/core/milp"
	"github.com/rvigier/loadshift/core/model"
)

// Calibration is the ideal/nadir picture of both objectives for one
// parameter set. The nadirs are estimates, never exact; the Found flags say
// whether the corresponding ideal solve reached optimality.
type Calibration struct {
	ECIdeal      float64
	PLIdeal      float64
	ECIdealFound bool
	PLIdealFound bool
	ECNadir      float64
	PLNadir      float64
}

// NormFactors turns both objectives into dimensionless deviations from their
// ideals so neither dominates purely through unit scale.
type NormFactors struct {
	ECIdeal float64
	PLIdeal float64
	ECNorm  float64
	PLNorm  float64
}

// ObjectiveManager computes objective expressions and the calibration data
// the scalarized approaches need. Calibration is deterministic for a given
// parameter set and solver, so it is computed once per manager and cached.
type ObjectiveManager struct {
	params model.Parameters
	solver milp.Solver
	cfg    CalibrationConfig
	sink   coremetrics.Sink
	log    logger.Logger

	cal *Calibration
}

// NewObjectiveManager creates a manager. A nil sink disables recording.
func NewObjectiveManager(params model.Parameters, solver milp.Solver, cfg CalibrationConfig, sink coremetrics.Sink, log logger.Logger) *ObjectiveManager {
	cfg.SetDefaults()
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &ObjectiveManager{params: params, solver: solver, cfg: cfg, sink: sink, log: log}
}

// ECExpression is the net electricity cost of a region's schedule:
// sum over valid (i,t,s) of R * (price*x - incentive*y) * slot duration.
func (m *ObjectiveManager) ECExpression(r *Region) milp.Expr {
	p := m.params
	var e milp.Expr
	for s := 1; s <= p.Systems; s++ {
		for t := 1; t <= p.Slots; t++ {
			for i := 1; i <= p.Machines; i++ {
				if !p.Valid(i, s) {
					continue
				}
				k := slotKey{i, t, s}
				rp := p.Power(i, s)
				e.Add(r.X[k], rp*p.Prices[t]*p.SlotHours)
				e.Add(r.Y[k], -rp*p.Incentives[t]*p.SlotHours)
			}
		}
	}
	return e
}

// IdealEC solves for the minimum achievable electricity cost on its own.
func (m *ObjectiveManager) IdealEC(ctx context.Context) (float64, error) {
	r := BuildBaseRegion(m.params, "ec_ideal")
	ec := m.ECExpression(r)
	r.Model.Minimize(ec)
	sol, err := m.solveFor(ctx, "calibration", "ec_ideal", r.Model)
	if err != nil {
		return 0, err
	}
	return ec.Eval(sol.Values), nil
}

// IdealPL solves for the minimum achievable peak load on its own.
func (m *ObjectiveManager) IdealPL(ctx context.Context) (float64, error) {
	r := BuildBaseRegion(m.params, "pl_ideal")
	var obj milp.Expr
	obj.Add(r.PL, 1)
	r.Model.Minimize(obj)
	sol, err := m.solveFor(ctx, "calibration", "pl_ideal", r.Model)
	if err != nil {
		return 0, err
	}
	return sol.Value(r.PL), nil
}

// Calibration returns the cached calibration, computing it on first use.
// It never fails: estimation degrades through the configured fallbacks when
// solves do not reach optimality.
func (m *ObjectiveManager) Calibration(ctx context.Context) Calibration {
	if m.cal == nil {
		cal := m.estimate(ctx)
		m.cal = &cal
	}
	return *m.cal
}

// NormalizationFactors derives the scalarization factors from the
// calibration. The perturbation in estimate guarantees non-zero ranges.
func (m *ObjectiveManager) NormalizationFactors(ctx context.Context) NormFactors {
	cal := m.Calibration(ctx)
	return NormFactors{
		ECIdeal: cal.ECIdeal,
		PLIdeal: cal.PLIdeal,
		ECNorm:  1 / (cal.ECNadir - cal.ECIdeal),
		PLNorm:  1 / (cal.PLNadir - cal.PLIdeal),
	}
}

// estimate finds both ideals and estimates the nadirs by reading each
// objective's value at the other objective's optimum. It issues four solves.
func (m *ObjectiveManager) estimate(ctx context.Context) Calibration {
	var cal Calibration

	if v, err := m.IdealEC(ctx); err == nil {
		cal.ECIdeal, cal.ECIdealFound = v, true
	} else {
		m.log.Warnf("calibration: no ideal EC value: %v", err)
	}
	if v, err := m.IdealPL(ctx); err == nil {
		cal.PLIdeal, cal.PLIdealFound = v, true
	} else {
		m.log.Warnf("calibration: no ideal PL value: %v", err)
	}

	rEC := BuildBaseRegion(m.params, "nadir_ec_side")
	ecExpr := m.ECExpression(rEC)
	rEC.Model.Minimize(ecExpr)
	solEC, errEC := m.solveFor(ctx, "calibration", "nadir_ec_side", rEC.Model)

	rPL := BuildBaseRegion(m.params, "nadir_pl_side")
	var plObj milp.Expr
	plObj.Add(rPL.PL, 1)
	rPL.Model.Minimize(plObj)
	solPL, errPL := m.solveFor(ctx, "calibration", "nadir_pl_side", rPL.Model)

	if errEC == nil && errPL == nil {
		ecAtECOpt := ecExpr.Eval(solEC.Values)
		plAtECOpt := solEC.Value(rEC.PL)
		ecAtPLOpt := m.ECExpression(rPL).Eval(solPL.Values)
		plAtPLOpt := solPL.Value(rPL.PL)

		cal.ECNadir = math.Max(ecAtPLOpt, ecAtECOpt*m.cfg.NadirInflation)
		cal.PLNadir = math.Max(plAtECOpt, plAtPLOpt*m.cfg.NadirInflation)
	} else {
		if cal.ECIdealFound && cal.ECIdeal != 0 {
			cal.ECNadir = cal.ECIdeal * m.cfg.FallbackScale
		} else {
			cal.ECNadir = m.cfg.DefaultECNadir
		}
		if cal.PLIdealFound && cal.PLIdeal != 0 {
			cal.PLNadir = cal.PLIdeal * m.cfg.FallbackScale
		} else {
			cal.PLNadir = m.cfg.DefaultPLNadir
		}
	}

	// A zero range would make normalization divide by zero.
	if cal.ECNadir == cal.ECIdeal {
		cal.ECNadir = cal.ECIdeal*m.cfg.PerturbFactor + m.cfg.PerturbOffset
	}
	if cal.PLNadir == cal.PLIdeal {
		cal.PLNadir = cal.PLIdeal*m.cfg.PerturbFactor + m.cfg.PerturbOffset
	}

	m.log.Infof("calibration: EC ideal=%.2f nadir=%.2f, PL ideal=%.2f nadir=%.2f",
		cal.ECIdeal, cal.ECNadir, cal.PLIdeal, cal.PLNadir)
	return cal
}

// solve runs the solver, records the event and maps any non-optimal status
// to ErrNoSolution.
func (m *ObjectiveManager) solveFor(ctx context.Context, approach, phase string, mod *milp.Model) (*milp.Solution, error) {
	start := time.Now()
	sol, err := m.solver.Solve(ctx, mod)
	status := "error"
	if err == nil {
		status = sol.Status.String()
	}
	if rerr := m.sink.RecordSolve(coremetrics.SolveEvent{
		Approach: approach,
		Phase:    phase,
		Status:   status,
		Duration: time.Since(start),
	}); rerr != nil {
		m.log.Warnf("record solve event: %v", rerr)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", phase, err)
	}
	if sol.Status != milp.StatusOptimal {
		return nil, fmt.Errorf("%s: status %s: %w", phase, sol.Status, ErrNoSolution)
	}
	return sol, nil
}
