package relax

import (
	"context"
	"math"
	"testing"

	"github.com/rvigier/loadshift/core/milp"
)

func TestSolveContinuousProgram(t *testing.T) {
	// min x + y  s.t.  x + y >= 3, x <= 2.
	m := milp.NewModel("lp")
	x := m.Continuous("x")
	y := m.Continuous("y")

	var lower milp.Expr
	lower.Add(x, 1)
	lower.Add(y, 1)
	m.AddConstraint("lower", lower, milp.GE, 3)

	var capX milp.Expr
	capX.Add(x, 1)
	m.AddConstraint("cap_x", capX, milp.LE, 2)

	var obj milp.Expr
	obj.Add(x, 1)
	obj.Add(y, 1)
	m.Minimize(obj)

	sol, err := (&Solver{}).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != milp.StatusOptimal {
		t.Fatalf("expected optimal got %s", sol.Status)
	}
	if math.Abs(sol.Objective-3) > 1e-6 {
		t.Fatalf("expected objective 3 got %v", sol.Objective)
	}
	if math.Abs(sol.Value(x)+sol.Value(y)-3) > 1e-6 {
		t.Fatalf("solution must sit on the binding row: x=%v y=%v", sol.Value(x), sol.Value(y))
	}
}

func TestSolveRelaxesBinaries(t *testing.T) {
	// min -x - y with binaries relaxed to [0,1] is bounded at -2.
	m := milp.NewModel("relaxed")
	x := m.Binary("x")
	y := m.Binary("y")

	var obj milp.Expr
	obj.Add(x, -1)
	obj.Add(y, -1)
	m.Minimize(obj)

	sol, err := (&Solver{}).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != milp.StatusOptimal {
		t.Fatalf("expected optimal got %s", sol.Status)
	}
	if math.Abs(sol.Objective+2) > 1e-6 {
		t.Fatalf("expected objective -2 got %v", sol.Objective)
	}
	if sol.Value(x) > 1+1e-6 || sol.Value(y) > 1+1e-6 {
		t.Fatalf("relaxed binaries must stay within [0,1]: x=%v y=%v", sol.Value(x), sol.Value(y))
	}
}

func TestSolveHandlesEqualityAndConstant(t *testing.T) {
	// min x + 5  s.t.  x + y = 4, y <= 1.
	m := milp.NewModel("eq")
	x := m.Continuous("x")
	y := m.Continuous("y")

	var balance milp.Expr
	balance.Add(x, 1)
	balance.Add(y, 1)
	m.AddConstraint("balance", balance, milp.EQ, 4)

	var capY milp.Expr
	capY.Add(y, 1)
	m.AddConstraint("cap_y", capY, milp.LE, 1)

	var obj milp.Expr
	obj.Add(x, 1)
	obj.Const = 5
	m.Minimize(obj)

	sol, err := (&Solver{}).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sol.Objective-8) > 1e-6 {
		t.Fatalf("expected objective 8 got %v", sol.Objective)
	}
	if math.Abs(sol.Value(x)-3) > 1e-6 {
		t.Fatalf("expected x 3 got %v", sol.Value(x))
	}
}

func TestSolveReportsInfeasible(t *testing.T) {
	m := milp.NewModel("infeasible")
	x := m.Continuous("x")

	var row milp.Expr
	row.Add(x, 1)
	m.AddConstraint("cap", row, milp.LE, -1)

	var obj milp.Expr
	obj.Add(x, 1)
	m.Minimize(obj)

	sol, err := (&Solver{}).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != milp.StatusInfeasible {
		t.Fatalf("expected infeasible got %s", sol.Status)
	}
}
