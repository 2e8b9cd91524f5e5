package schedule

import (
	"testing"

	"github.com/rvigier/loadshift/core/milp"
	"github.com/rvigier/loadshift/core/model"
)

// twoMachineParams is a small plant used across the package tests:
// one system, four slots, a 2 kW machine that must run two slots and a
// 3 kW machine that must run one.
func twoMachineParams() model.Parameters {
	return model.Parameters{
		Machines: 2,
		Slots:    4,
		Systems:  1,
		RatedPower: map[model.MachineKey]float64{
			{Machine: 1, System: 1}: 2,
			{Machine: 2, System: 1}: 3,
		},
		MinSlots: map[model.MachineKey]int{
			{Machine: 1, System: 1}: 2,
			{Machine: 2, System: 1}: 1,
		},
		EarliestSlot: map[model.MachineKey]int{
			{Machine: 1, System: 1}: 1,
			{Machine: 2, System: 1}: 1,
		},
		LatestSlot: map[model.MachineKey]int{
			{Machine: 1, System: 1}: 4,
			{Machine: 2, System: 1}: 4,
		},
		Prices:     map[int]float64{1: 0.10, 2: 0.20, 3: 0.30, 4: 0.40},
		Incentives: map[int]float64{1: 0, 2: 0, 3: 0, 4: 0},
		SlotHours:  1,
		Budgets:    map[int]float64{1: 100},
	}
}

func countConstraints(m *milp.Model, prefix string) int {
	n := 0
	for _, c := range m.Constraints() {
		if len(c.Name) >= len(prefix) && c.Name[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func TestBuildBaseRegionVariables(t *testing.T) {
	p := twoMachineParams()
	r := BuildBaseRegion(p, "test")

	// 2 valid pairs * 4 slots * 3 binaries, plus e per slot and PL.
	if got := r.Model.NumVars(); got != 29 {
		t.Fatalf("expected 29 variables got %d", got)
	}
	if len(r.X) != 8 || len(r.Y) != 8 || len(r.U) != 8 {
		t.Fatalf("unexpected decision variable counts: x=%d y=%d u=%d", len(r.X), len(r.Y), len(r.U))
	}
	for k, v := range r.X {
		if r.Model.Kind(v) != milp.Binary {
			t.Fatalf("x%v is not binary", k)
		}
	}
	if r.Model.Kind(r.PL) != milp.Continuous {
		t.Fatalf("PL must be continuous")
	}
	for _, e := range r.E {
		if r.Model.Kind(e) != milp.Continuous {
			t.Fatalf("load variables must be continuous")
		}
	}
}

func TestBuildBaseRegionSkipsInvalidPairs(t *testing.T) {
	p := twoMachineParams()
	p.Systems = 2
	p.Budgets[2] = 100
	r := BuildBaseRegion(p, "test")

	// No machine has a rated power in system 2, so no variables appear for it.
	if _, ok := r.X[slotKey{Machine: 1, Slot: 1, System: 2}]; ok {
		t.Fatalf("pair without rated power must not get variables")
	}
	if got := countConstraints(r.Model, "budget_"); got != 2 {
		t.Fatalf("expected one budget row per system, got %d", got)
	}
}

func TestBuildBaseRegionConstraintFamilies(t *testing.T) {
	p := twoMachineParams()
	r := BuildBaseRegion(p, "test")

	cases := map[string]int{
		"load_":           4,
		"peak_":           4,
		"budget_":         1,
		"duration_":       2,
		"no_restart_":     8,
		"shutdown_latch_": 6,
		"latch_monotone_": 6,
		"incentive_":      8,
		"precedence_":     0,
	}
	for prefix, want := range cases {
		if got := countConstraints(r.Model, prefix); got != want {
			t.Errorf("%s rows: expected %d got %d", prefix, want, got)
		}
	}
}

func TestLoadRowTiesDrawToSchedule(t *testing.T) {
	p := twoMachineParams()
	r := BuildBaseRegion(p, "test")

	c, ok := r.Model.Constraint("load_1")
	if !ok {
		t.Fatalf("missing load row for slot 1")
	}
	if c.Sense != milp.EQ || c.RHS != 0 {
		t.Fatalf("load row must be an equality to zero: %+v", c)
	}

	coefs := map[milp.Var]float64{}
	for _, term := range c.Expr.Terms {
		coefs[term.Var] += term.Coef
	}
	if coefs[r.E[0]] != 1 {
		t.Fatalf("expected coefficient 1 on e_1 got %v", coefs[r.E[0]])
	}
	if coefs[r.X[slotKey{Machine: 1, Slot: 1, System: 1}]] != -2 {
		t.Fatalf("expected -2 on x for the 2 kW machine")
	}
	if coefs[r.X[slotKey{Machine: 2, Slot: 1, System: 1}]] != -3 {
		t.Fatalf("expected -3 on x for the 3 kW machine")
	}
}

func TestBudgetRowUsesPricesAndIncentives(t *testing.T) {
	p := twoMachineParams()
	p.Incentives[2] = 0.05
	r := BuildBaseRegion(p, "test")

	c, ok := r.Model.Constraint("budget_1")
	if !ok {
		t.Fatalf("missing budget row")
	}
	if c.Sense != milp.LE || c.RHS != 100 {
		t.Fatalf("unexpected budget row: sense=%v rhs=%v", c.Sense, c.RHS)
	}

	coefs := map[milp.Var]float64{}
	for _, term := range c.Expr.Terms {
		coefs[term.Var] += term.Coef
	}
	x := r.X[slotKey{Machine: 1, Slot: 2, System: 1}]
	y := r.Y[slotKey{Machine: 1, Slot: 2, System: 1}]
	if coefs[x] != 2*0.20 {
		t.Fatalf("expected price coefficient 0.4 got %v", coefs[x])
	}
	if coefs[y] != -2*0.05 {
		t.Fatalf("expected incentive coefficient -0.1 got %v", coefs[y])
	}
}

func TestDurationRowClampsWindow(t *testing.T) {
	p := twoMachineParams()
	p.EarliestSlot[model.MachineKey{Machine: 1, System: 1}] = 0
	p.LatestSlot[model.MachineKey{Machine: 1, System: 1}] = 9
	r := BuildBaseRegion(p, "test")

	c, ok := r.Model.Constraint("duration_1_1")
	if !ok {
		t.Fatalf("missing duration row")
	}
	if len(c.Expr.Terms) != 4 {
		t.Fatalf("window must clamp to the horizon, got %d terms", len(c.Expr.Terms))
	}
	if c.Sense != milp.GE || c.RHS != 2 {
		t.Fatalf("unexpected duration row: sense=%v rhs=%v", c.Sense, c.RHS)
	}
}

func TestSingleRunRows(t *testing.T) {
	p := twoMachineParams()
	r := BuildBaseRegion(p, "test")

	// x + u <= 1 exists for every slot including the first.
	if _, ok := r.Model.Constraint("no_restart_1_1_1"); !ok {
		t.Fatalf("missing no_restart row for slot 1")
	}
	// Latch rows only exist from slot 2 on.
	if _, ok := r.Model.Constraint("shutdown_latch_1_1_1"); ok {
		t.Fatalf("latch row must not exist for slot 1")
	}
	c, ok := r.Model.Constraint("shutdown_latch_1_2_1")
	if !ok {
		t.Fatalf("missing latch row for slot 2")
	}

	coefs := map[milp.Var]float64{}
	for _, term := range c.Expr.Terms {
		coefs[term.Var] += term.Coef
	}
	if coefs[r.X[slotKey{Machine: 1, Slot: 1, System: 1}]] != 1 ||
		coefs[r.X[slotKey{Machine: 1, Slot: 2, System: 1}]] != -1 ||
		coefs[r.U[slotKey{Machine: 1, Slot: 2, System: 1}]] != -1 {
		t.Fatalf("unexpected latch coefficients: %+v", coefs)
	}
}

func TestPrecedenceGatesOnCompletion(t *testing.T) {
	p := twoMachineParams()
	p.Predecessors = map[model.MachineKey]int{{Machine: 2, System: 1}: 1}
	r := BuildBaseRegion(p, "test")

	if got := countConstraints(r.Model, "precedence_"); got != 4 {
		t.Fatalf("expected 4 precedence rows got %d", got)
	}
	c, ok := r.Model.Constraint("precedence_2_1_3_1")
	if !ok {
		t.Fatalf("missing precedence row")
	}

	coefs := map[milp.Var]float64{}
	for _, term := range c.Expr.Terms {
		coefs[term.Var] += term.Coef
	}
	if coefs[r.X[slotKey{Machine: 2, Slot: 3, System: 1}]] != 1 {
		t.Fatalf("dependent run variable must carry coefficient 1")
	}
	if coefs[r.U[slotKey{Machine: 1, Slot: 3, System: 1}]] != -1 {
		t.Fatalf("row must reference the predecessor's completion latch")
	}
}

func TestPrecedenceSkipsMissingPredecessor(t *testing.T) {
	p := twoMachineParams()
	// Predecessor 3 has no rated power anywhere.
	p.Predecessors = map[model.MachineKey]int{{Machine: 2, System: 1}: 3}
	r := BuildBaseRegion(p, "test")

	if got := countConstraints(r.Model, "precedence_"); got != 0 {
		t.Fatalf("expected no precedence rows for a missing predecessor, got %d", got)
	}
}
