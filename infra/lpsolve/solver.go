package lpsolve

import (
	"context"
	"fmt"

	"github.com/draffensperger/golp"

	"github.com/rvigier/loadshift/core/logger"
	"github.com/rvigier/loadshift/core/milp"
)

// Config tunes the lp_solve backend.
type Config struct {
	// Verbose raises lp_solve's own log level. Diagnostics only.
	Verbose bool `json:"verbose"`
}

// Solver implements milp.Solver on top of lp_solve through golp. The
// branch-and-bound lives entirely inside lp_solve; this adapter only
// translates the model.
type Solver struct {
	cfg Config
	log logger.Logger
}

// New creates a Solver.
func New(cfg Config, log logger.Logger) *Solver {
	return &Solver{cfg: cfg, log: log}
}

// Solve translates the model into an lp_solve problem and runs it. The call
// blocks until lp_solve finishes; the context is only checked before the
// solve starts, a running solve cannot be interrupted.
func (s *Solver) Solve(ctx context.Context, m *milp.Model) (*milp.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := m.NumVars()
	lp := golp.NewLP(0, n)
	if s.cfg.Verbose {
		lp.SetVerboseLevel(4)
	}
	for v := 0; v < n; v++ {
		lp.SetColName(v, m.VarName(milp.Var(v)))
		if m.Kind(milp.Var(v)) == milp.Binary {
			lp.SetInt(v, true)
		}
	}

	// lp_solve columns default to [0, +inf); binaries additionally need an
	// upper bound row.
	for v := 0; v < n; v++ {
		if m.Kind(milp.Var(v)) != milp.Binary {
			continue
		}
		entries := []golp.Entry{{Col: v, Val: 1}}
		if err := lp.AddConstraintSparse(entries, golp.LE, 1); err != nil {
			return nil, fmt.Errorf("bound for %s: %w", m.VarName(milp.Var(v)), err)
		}
	}

	for _, c := range m.Constraints() {
		entries, rhs := toEntries(c)
		if err := lp.AddConstraintSparse(entries, toSense(c.Sense), rhs); err != nil {
			return nil, fmt.Errorf("constraint %s: %w", c.Name, err)
		}
	}

	obj, ok := m.Objective()
	coefs := make([]float64, n)
	if ok {
		for _, t := range obj.Terms {
			coefs[t.Var] += t.Coef
		}
	}
	lp.SetObjFn(coefs)

	ret := lp.Solve()
	status := toStatus(ret)
	s.log.Debugw("lp_solve finished", map[string]any{
		"model":  m.Name(),
		"status": status.String(),
		"vars":   n,
		"rows":   len(m.Constraints()),
	})

	sol := &milp.Solution{Status: status}
	if status == milp.StatusOptimal {
		sol.Values = lp.Variables()
		// lp_solve drops the objective's constant term.
		sol.Objective = lp.Objective() + obj.Const
	}
	return sol, nil
}

// toEntries folds duplicate columns and moves the expression constant to the
// right-hand side.
func toEntries(c milp.Constraint) ([]golp.Entry, float64) {
	byCol := map[int]float64{}
	order := make([]int, 0, len(c.Expr.Terms))
	for _, t := range c.Expr.Terms {
		if _, seen := byCol[int(t.Var)]; !seen {
			order = append(order, int(t.Var))
		}
		byCol[int(t.Var)] += t.Coef
	}
	entries := make([]golp.Entry, 0, len(order))
	for _, col := range order {
		entries = append(entries, golp.Entry{Col: col, Val: byCol[col]})
	}
	return entries, c.RHS - c.Expr.Const
}

func toSense(s milp.Sense) golp.ConstraintType {
	switch s {
	case milp.GE:
		return golp.GE
	case milp.EQ:
		return golp.EQ
	default:
		return golp.LE
	}
}

func toStatus(t golp.SolutionType) milp.Status {
	switch t {
	case golp.OPTIMAL:
		return milp.StatusOptimal
	case golp.INFEASIBLE:
		return milp.StatusInfeasible
	case golp.UNBOUNDED:
		return milp.StatusUnbounded
	default:
		return milp.StatusNotSolved
	}
}
