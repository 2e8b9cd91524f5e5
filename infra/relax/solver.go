package relax

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/rvigier/loadshift/core/milp"
)

// Solver implements milp.Solver on the continuous relaxation of a model:
// binaries are relaxed to [0,1] and the simplex method is run on the result.
// The objective it reports is a valid lower bound on the true mixed-integer
// optimum, which makes it useful for fast diagnostics, but the variable
// values are generally fractional and must not be read as a schedule.
type Solver struct {
	// Tol is the simplex convergence tolerance. Zero means 1e-7.
	Tol float64
}

// Solve relaxes the model and runs gonum's simplex on it.
func (s *Solver) Solve(ctx context.Context, m *milp.Model) (*milp.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tol := s.Tol
	if tol == 0 {
		tol = 1e-7
	}

	n := m.NumVars()
	var ineqs []milp.Constraint
	var eqs []milp.Constraint
	for _, c := range m.Constraints() {
		if c.Sense == milp.EQ {
			eqs = append(eqs, c)
		} else {
			ineqs = append(ineqs, c)
		}
	}

	// Variable bounds become explicit rows: every variable is non-negative,
	// binaries are additionally capped at one.
	nBin := 0
	for v := 0; v < n; v++ {
		if m.Kind(milp.Var(v)) == milp.Binary {
			nBin++
		}
	}
	rows := len(ineqs) + n + nBin
	g := mat.NewDense(rows, n, nil)
	h := make([]float64, rows)
	row := 0
	for _, c := range ineqs {
		sign := 1.0
		if c.Sense == milp.GE {
			sign = -1
		}
		for _, t := range c.Expr.Terms {
			g.Set(row, int(t.Var), g.At(row, int(t.Var))+sign*t.Coef)
		}
		h[row] = sign * (c.RHS - c.Expr.Const)
		row++
	}
	for v := 0; v < n; v++ {
		g.Set(row, v, -1)
		h[row] = 0
		row++
	}
	for v := 0; v < n; v++ {
		if m.Kind(milp.Var(v)) != milp.Binary {
			continue
		}
		g.Set(row, v, 1)
		h[row] = 1
		row++
	}

	var a mat.Matrix
	var b []float64
	if len(eqs) > 0 {
		ad := mat.NewDense(len(eqs), n, nil)
		b = make([]float64, len(eqs))
		for i, c := range eqs {
			for _, t := range c.Expr.Terms {
				ad.Set(i, int(t.Var), ad.At(i, int(t.Var))+t.Coef)
			}
			b[i] = c.RHS - c.Expr.Const
		}
		a = ad
	}

	obj, _ := m.Objective()
	c := make([]float64, n)
	for _, t := range obj.Terms {
		c[t.Var] += t.Coef
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	opt, xStd, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	switch {
	case err == nil:
	case errors.Is(err, lp.ErrInfeasible):
		return &milp.Solution{Status: milp.StatusInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return &milp.Solution{Status: milp.StatusUnbounded}, nil
	default:
		return &milp.Solution{Status: milp.StatusNotSolved}, err
	}

	// Convert splits each free variable into a positive and a negative part,
	// positives first. Recombine to recover the original columns.
	values := make([]float64, n)
	for v := 0; v < n; v++ {
		values[v] = xStd[v]
		if len(xStd) >= 2*n {
			values[v] -= xStd[n+v]
		}
	}
	return &milp.Solution{
		Status:    milp.StatusOptimal,
		Values:    values,
		Objective: opt + obj.Const,
	}, nil
}
