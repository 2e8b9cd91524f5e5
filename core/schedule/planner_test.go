package schedule

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rvigier/loadshift/core/milp"
	"github.com/rvigier/loadshift/core/model"
	"github.com/rvigier/loadshift/infra/logger"
)

func newTestPlanner(t *testing.T, solver milp.Solver) *Planner {
	t.Helper()
	p, err := NewPlanner(twoMachineParams(), solver, Config{}, nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("planner: %v", err)
	}
	return p
}

func TestNewPlannerRejectsBadInputs(t *testing.T) {
	solver := &scriptedSolver{}
	if _, err := NewPlanner(model.Parameters{}, solver, Config{}, nil, logger.NopLogger{}); err == nil {
		t.Fatalf("expected error for empty parameters")
	}
	if _, err := NewPlanner(twoMachineParams(), nil, Config{}, nil, logger.NopLogger{}); err == nil {
		t.Fatalf("expected error for nil solver")
	}
	bad := Config{FreezeTolerance: 0.5}
	if _, err := NewPlanner(twoMachineParams(), solver, bad, nil, logger.NopLogger{}); err == nil {
		t.Fatalf("expected error for freeze tolerance below 1")
	}
}

func TestECFirstHoldsOptimalCost(t *testing.T) {
	params := twoMachineParams()
	ref := BuildBaseRegion(params, "ref")

	solver := &scriptedSolver{responses: map[string]func(*milp.Model) (*milp.Solution, error){
		"ec_first_step1": func(m *milp.Model) (*milp.Solution, error) { return optimalFor(m, cheapestValues(ref)) },
		"ec_first_step2": func(m *milp.Model) (*milp.Solution, error) {
			c, ok := m.Constraint("hold_optimal_ec")
			if !ok {
				return nil, errors.New("step 2 must freeze the cost")
			}
			if c.Sense != milp.LE {
				return nil, errors.New("freeze row must be an upper bound")
			}
			if math.Abs(c.RHS-0.9*1.001) > 1e-9 {
				return nil, errors.New("freeze bound must be the step-1 optimum within tolerance")
			}
			return optimalFor(m, cheapestValues(ref))
		},
	}}
	planner := newTestPlanner(t, solver)

	res, err := planner.ECFirst(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Approach != ApproachECFirst {
		t.Fatalf("unexpected approach %q", res.Approach)
	}
	if math.Abs(res.EC-0.9) > 1e-9 {
		t.Fatalf("expected EC 0.9 got %v", res.EC)
	}
	if res.PL != 5 {
		t.Fatalf("expected PL 5 got %v", res.PL)
	}
	if solver.calls != 2 {
		t.Fatalf("expected 2 solves got %d", solver.calls)
	}
}

func TestPLFirstHoldsOptimalPeak(t *testing.T) {
	params := twoMachineParams()
	ref := BuildBaseRegion(params, "ref")

	solver := &scriptedSolver{responses: map[string]func(*milp.Model) (*milp.Solution, error){
		"pl_first_step1": func(m *milp.Model) (*milp.Solution, error) { return optimalFor(m, flattestValues(ref)) },
		"pl_first_step2": func(m *milp.Model) (*milp.Solution, error) {
			c, ok := m.Constraint("hold_optimal_pl")
			if !ok {
				return nil, errors.New("step 2 must freeze the peak")
			}
			if math.Abs(c.RHS-3*1.001) > 1e-9 {
				return nil, errors.New("freeze bound must be the step-1 optimum within tolerance")
			}
			return optimalFor(m, flattestValues(ref))
		},
	}}
	planner := newTestPlanner(t, solver)

	res, err := planner.PLFirst(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.EC-1.3) > 1e-9 {
		t.Fatalf("expected EC 1.3 got %v", res.EC)
	}
	if res.PL != 3 {
		t.Fatalf("expected PL 3 got %v", res.PL)
	}
}

func TestECFirstPropagatesInfeasibility(t *testing.T) {
	solver := &scriptedSolver{responses: map[string]func(*milp.Model) (*milp.Solution, error){
		"ec_first_step1": func(m *milp.Model) (*milp.Solution, error) {
			return &milp.Solution{Status: milp.StatusInfeasible}, nil
		},
	}}
	planner := newTestPlanner(t, solver)

	_, err := planner.ECFirst(context.Background())
	if !errors.Is(err, ErrNoSolution) {
		t.Fatalf("expected ErrNoSolution got %v", err)
	}
	if solver.calls != 1 {
		t.Fatalf("step 2 must not run after an infeasible step 1, got %d solves", solver.calls)
	}
}

func TestWeightedSumObjective(t *testing.T) {
	params := twoMachineParams()
	ref := BuildBaseRegion(params, "ref")
	calOK := func(m *milp.Model) (*milp.Solution, error) { return optimalFor(m, cheapestValues(ref)) }

	var wsObjective milp.Expr
	solver := &scriptedSolver{responses: map[string]func(*milp.Model) (*milp.Solution, error){
		"ec_ideal":      calOK,
		"pl_ideal":      func(m *milp.Model) (*milp.Solution, error) { return optimalFor(m, flattestValues(ref)) },
		"nadir_ec_side": calOK,
		"nadir_pl_side": func(m *milp.Model) (*milp.Solution, error) { return optimalFor(m, flattestValues(ref)) },
		"weighted_sum": func(m *milp.Model) (*milp.Solution, error) {
			obj, ok := m.Objective()
			if !ok {
				return nil, errors.New("weighted sum model has no objective")
			}
			wsObjective = obj
			return optimalFor(m, cheapestValues(ref))
		},
	}}
	planner := newTestPlanner(t, solver)

	res, err := planner.WeightedSum(context.Background(), model.Weights{EC: 0.7, PL: 0.3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Approach != ApproachWeightedSum {
		t.Fatalf("unexpected approach %q", res.Approach)
	}

	// Calibration gives EC ideal 0.9, nadir 1.35, PL ideal 3, nadir 5.
	// The folded constant is -(0.7*(1/0.45)*0.9 + 0.3*0.5*3).
	wantConst := -(0.7*(1/0.45)*0.9 + 0.3*0.5*3)
	if math.Abs(wsObjective.Const-wantConst) > 1e-9 {
		t.Fatalf("expected objective constant %v got %v", wantConst, wsObjective.Const)
	}
	// At the ideal schedules the scalarized objective evaluates to the
	// normalized PL deviation only: 0.3*0.5*(5-3).
	values := make([]float64, ref.Model.NumVars())
	for v, val := range cheapestValues(ref) {
		values[v] = val
	}
	if got := wsObjective.Eval(values); math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("expected scalarized value 0.3 got %v", got)
	}
}

func TestCompromiseDeviationRows(t *testing.T) {
	params := twoMachineParams()
	ref := BuildBaseRegion(params, "ref")
	calOK := func(m *milp.Model) (*milp.Solution, error) { return optimalFor(m, cheapestValues(ref)) }

	solver := &scriptedSolver{responses: map[string]func(*milp.Model) (*milp.Solution, error){
		"ec_ideal":      calOK,
		"pl_ideal":      func(m *milp.Model) (*milp.Solution, error) { return optimalFor(m, flattestValues(ref)) },
		"nadir_ec_side": calOK,
		"nadir_pl_side": func(m *milp.Model) (*milp.Solution, error) { return optimalFor(m, flattestValues(ref)) },
		"compromise": func(m *milp.Model) (*milp.Solution, error) {
			ec, ok := m.Constraint("ec_deviation")
			if !ok {
				return nil, errors.New("missing ec deviation row")
			}
			// w.EC * ecIdeal / ecIdeal with ideal 0.9 above the epsilon floor.
			if math.Abs(ec.RHS-0.5) > 1e-9 {
				return nil, errors.New("unexpected ec deviation bound")
			}
			pl, ok := m.Constraint("pl_deviation")
			if !ok {
				return nil, errors.New("missing pl deviation row")
			}
			if math.Abs(pl.RHS-0.5) > 1e-9 {
				return nil, errors.New("unexpected pl deviation bound")
			}
			if m.VarName(milp.Var(m.NumVars()-1)) != "max_deviation" {
				return nil, errors.New("missing deviation bound variable")
			}
			sol := make([]float64, m.NumVars())
			for v, val := range cheapestValues(ref) {
				sol[v] = val
			}
			return &milp.Solution{Status: milp.StatusOptimal, Values: sol}, nil
		},
	}}
	planner := newTestPlanner(t, solver)

	res, err := planner.Compromise(context.Background(), model.Weights{EC: 0.5, PL: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Approach != ApproachCompromise {
		t.Fatalf("unexpected approach %q", res.Approach)
	}
}

func TestPlannerSharesCalibrationAcrossApproaches(t *testing.T) {
	params := twoMachineParams()
	ref := BuildBaseRegion(params, "ref")
	calOK := func(m *milp.Model) (*milp.Solution, error) { return optimalFor(m, cheapestValues(ref)) }
	solver := &scriptedSolver{responses: map[string]func(*milp.Model) (*milp.Solution, error){
		"ec_ideal": calOK, "pl_ideal": calOK, "nadir_ec_side": calOK, "nadir_pl_side": calOK,
		"weighted_sum": calOK, "compromise": calOK,
	}}
	planner := newTestPlanner(t, solver)

	if _, err := planner.WeightedSum(context.Background(), model.Weights{EC: 0.5, PL: 0.5}); err != nil {
		t.Fatalf("weighted sum: %v", err)
	}
	if _, err := planner.Compromise(context.Background(), model.Weights{EC: 0.5, PL: 0.5}); err != nil {
		t.Fatalf("compromise: %v", err)
	}
	// 4 calibration solves plus one final solve per approach.
	if solver.calls != 6 {
		t.Fatalf("expected 6 solves got %d", solver.calls)
	}
}
