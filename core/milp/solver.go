package milp

import "context"

// Status is the outcome reported by a Solver for one model.
type Status int

const (
	StatusNotSolved Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "not-solved"
	}
}

// Solution holds the outcome of a solve. Values is indexed by Var and is only
// meaningful when Status is StatusOptimal.
type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
}

// Value returns the solved value of a variable.
func (s *Solution) Value(v Var) float64 { return s.Values[v] }

// Solver turns a Model into a Solution. Implementations are expected to be
// deterministic for identical inputs. A solve blocks until it finishes; the
// context is checked between solves, a running solve is not interrupted.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}
