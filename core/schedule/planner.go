package schedule

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rvigier/loadshift/core/logger"
	coremetrics "github.com/rvigier/loadshift/core/metrics"
	"github.com/rvigier/loadshift/core/milp"
	"github.com/rvigier/loadshift/core/model"
)

// ErrNoSolution indicates a required solve did not reach an optimal status.
// Callers must treat it as "no feasible schedule under these settings".
var ErrNoSolution = errors.New("no optimal solution")

// Approach names as reported in results and the comparison table.
const (
	ApproachECFirst     = "ec_first"
	ApproachPLFirst     = "pl_first"
	ApproachWeightedSum = "weighted_sum"
	ApproachCompromise  = "compromise"
)

// Planner resolves the cost/peak trade-off with four approaches. Every
// approach builds one or two fresh regions and delegates solving; constraints
// added for one approach never leak into another.
type Planner struct {
	params model.Parameters
	solver milp.Solver
	cfg    Config
	obj    *ObjectiveManager
	sink   coremetrics.Sink
	log    logger.Logger
}

// NewPlanner validates the inputs and creates a planner. A nil sink disables
// metric recording.
func NewPlanner(params model.Parameters, solver milp.Solver, cfg Config, sink coremetrics.Sink, log logger.Logger) (*Planner, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("planner config: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("planner parameters: %w", err)
	}
	if solver == nil {
		return nil, errors.New("planner requires a solver")
	}
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Planner{
		params: params,
		solver: solver,
		cfg:    cfg,
		obj:    NewObjectiveManager(params, solver, cfg.Calibration, sink, log),
		sink:   sink,
		log:    log,
	}, nil
}

// Objectives exposes the planner's objective manager, sharing its cached
// calibration.
func (p *Planner) Objectives() *ObjectiveManager { return p.obj }

// ECFirst minimizes electricity cost, then minimizes peak load while holding
// the cost at its optimum (within the freeze tolerance).
func (p *Planner) ECFirst(ctx context.Context) (*model.Result, error) {
	r1 := BuildBaseRegion(p.params, "ec_first_step1")
	ec1 := p.obj.ECExpression(r1)
	r1.Model.Minimize(ec1)
	sol1, err := p.solve(ctx, ApproachECFirst, "step1", r1.Model)
	if err != nil {
		return nil, err
	}
	ecStar := ec1.Eval(sol1.Values)
	p.log.Infof("%s: optimal EC %.4f, now minimizing PL", ApproachECFirst, ecStar)

	r2 := BuildBaseRegion(p.params, "ec_first_step2")
	ec2 := p.obj.ECExpression(r2)
	r2.Model.AddConstraint("hold_optimal_ec", ec2, milp.LE, ecStar*p.cfg.FreezeTolerance)
	var obj milp.Expr
	obj.Add(r2.PL, 1)
	r2.Model.Minimize(obj)
	sol2, err := p.solve(ctx, ApproachECFirst, "step2", r2.Model)
	if err != nil {
		return nil, err
	}
	return p.extract(r2, sol2, ApproachECFirst)
}

// PLFirst minimizes peak load, then minimizes electricity cost while holding
// the peak at its optimum (within the freeze tolerance).
func (p *Planner) PLFirst(ctx context.Context) (*model.Result, error) {
	r1 := BuildBaseRegion(p.params, "pl_first_step1")
	var obj1 milp.Expr
	obj1.Add(r1.PL, 1)
	r1.Model.Minimize(obj1)
	sol1, err := p.solve(ctx, ApproachPLFirst, "step1", r1.Model)
	if err != nil {
		return nil, err
	}
	plStar := sol1.Value(r1.PL)
	p.log.Infof("%s: optimal PL %.4f, now minimizing EC", ApproachPLFirst, plStar)

	r2 := BuildBaseRegion(p.params, "pl_first_step2")
	var hold milp.Expr
	hold.Add(r2.PL, 1)
	r2.Model.AddConstraint("hold_optimal_pl", hold, milp.LE, plStar*p.cfg.FreezeTolerance)
	r2.Model.Minimize(p.obj.ECExpression(r2))
	sol2, err := p.solve(ctx, ApproachPLFirst, "step2", r2.Model)
	if err != nil {
		return nil, err
	}
	return p.extract(r2, sol2, ApproachPLFirst)
}

// WeightedSum minimizes the weighted sum of both objectives' normalized
// deviations from their ideal points. Weights need not sum to one.
func (p *Planner) WeightedSum(ctx context.Context, w model.Weights) (*model.Result, error) {
	nf := p.obj.NormalizationFactors(ctx)

	r := BuildBaseRegion(p.params, "weighted_sum")
	var obj milp.Expr
	obj.AddExpr(p.obj.ECExpression(r), w.EC*nf.ECNorm)
	obj.Add(r.PL, w.PL*nf.PLNorm)
	obj.Const -= w.EC*nf.ECNorm*nf.ECIdeal + w.PL*nf.PLNorm*nf.PLIdeal
	r.Model.Minimize(obj)

	sol, err := p.solve(ctx, ApproachWeightedSum, "final", r.Model)
	if err != nil {
		return nil, err
	}
	return p.extract(r, sol, ApproachWeightedSum)
}

// Compromise minimizes the worst weighted relative deviation from the ideal
// points (Chebyshev scalarization, linearized through a deviation bound).
// Deviations are taken relative to the ideal itself, not to the
// nadir-to-ideal range; this mirrors the model this planner was built
// against and intentionally differs from WeightedSum's normalization.
func (p *Planner) Compromise(ctx context.Context, w model.Weights) (*model.Result, error) {
	cal := p.obj.Calibration(ctx)
	ecIdeal := cal.ECIdeal
	if !cal.ECIdealFound || ecIdeal == 0 {
		ecIdeal = p.cfg.IdealFloor
	}
	plIdeal := cal.PLIdeal
	if !cal.PLIdealFound || plIdeal == 0 {
		plIdeal = p.cfg.IdealFloor
	}

	r := BuildBaseRegion(p.params, "compromise")
	maxDev := r.Model.Continuous("max_deviation")

	ecDen := math.Max(ecIdeal, p.cfg.DeviationEpsilon)
	var ecDev milp.Expr
	ecDev.AddExpr(p.obj.ECExpression(r), w.EC/ecDen)
	ecDev.Add(maxDev, -1)
	r.Model.AddConstraint("ec_deviation", ecDev, milp.LE, w.EC*ecIdeal/ecDen)

	plDen := math.Max(plIdeal, p.cfg.DeviationEpsilon)
	var plDev milp.Expr
	plDev.Add(r.PL, w.PL/plDen)
	plDev.Add(maxDev, -1)
	r.Model.AddConstraint("pl_deviation", plDev, milp.LE, w.PL*plIdeal/plDen)

	var obj milp.Expr
	obj.Add(maxDev, 1)
	r.Model.Minimize(obj)

	sol, err := p.solve(ctx, ApproachCompromise, "final", r.Model)
	if err != nil {
		return nil, err
	}
	return p.extract(r, sol, ApproachCompromise)
}

func (p *Planner) solve(ctx context.Context, approach, phase string, mod *milp.Model) (*milp.Solution, error) {
	sol, err := p.obj.solveFor(ctx, approach, phase, mod)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", approach, err)
	}
	return sol, nil
}

func (p *Planner) extract(r *Region, sol *milp.Solution, approach string) (*model.Result, error) {
	res, err := ExtractResult(p.params, r, sol, approach)
	if err != nil {
		return nil, err
	}
	if rerr := p.sink.RecordResult(res); rerr != nil {
		p.log.Warnf("record result: %v", rerr)
	}
	p.log.Infof("%s completed: EC %.4f, PL %.4f", approach, res.EC, res.PL)
	return res, nil
}
