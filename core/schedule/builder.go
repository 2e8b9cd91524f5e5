package schedule

import (
	"fmt"

	"github.com/rvigier/loadshift/core/milp"
	"github.com/rvigier/loadshift/core/model"
)

// slotKey addresses one per-slot decision variable.
type slotKey struct {
	Machine int
	Slot    int
	System  int
}

// Region is one freshly built feasible region: the decision variables and all
// structural constraints, with no objective. Regions are built per solve and
// discarded after extraction; they are never shared between approaches.
type Region struct {
	Model *milp.Model

	// X: machine is operating during the slot.
	// Y: incentive is claimed for the slot, only possible while operating.
	// U: completion latch, 1 from the first slot after the machine's single
	// run has ended, monotone in time.
	X map[slotKey]milp.Var
	Y map[slotKey]milp.Var
	U map[slotKey]milp.Var

	// E[t-1] is the aggregate power draw during slot t.
	E []milp.Var
	// PL bounds every E from above; minimizing it yields the true peak.
	PL milp.Var
}

// BuildBaseRegion creates the feasible region shared by every approach.
// Variables exist only for (machine, system) pairs with a rated power;
// missing pairs are simply absent from the model. The region is always
// structurally buildable, infeasibility only ever surfaces from the solver.
func BuildBaseRegion(p model.Parameters, name string) *Region {
	m := milp.NewModel(name)
	r := &Region{
		Model: m,
		X:     make(map[slotKey]milp.Var),
		Y:     make(map[slotKey]milp.Var),
		U:     make(map[slotKey]milp.Var),
		E:     make([]milp.Var, p.Slots),
	}

	for i := 1; i <= p.Machines; i++ {
		for s := 1; s <= p.Systems; s++ {
			if !p.Valid(i, s) {
				continue
			}
			for t := 1; t <= p.Slots; t++ {
				k := slotKey{Machine: i, Slot: t, System: s}
				r.X[k] = m.Binary(fmt.Sprintf("x_%d_%d_%d", i, t, s))
				r.Y[k] = m.Binary(fmt.Sprintf("y_%d_%d_%d", i, t, s))
				r.U[k] = m.Binary(fmt.Sprintf("u_%d_%d_%d", i, t, s))
			}
		}
	}
	for t := 1; t <= p.Slots; t++ {
		r.E[t-1] = m.Continuous(fmt.Sprintf("e_%d", t))
	}
	r.PL = m.Continuous("PL")

	addLoadRows(m, r, p)
	addPeakRows(m, r, p)
	addBudgetRows(m, r, p)
	addDurationRows(m, r, p)
	addSingleRunRows(m, r, p)
	addPrecedenceRows(m, r, p)
	addIncentiveRows(m, r, p)

	return r
}

// addLoadRows fixes each slot's aggregate draw to the scheduled machines:
// e[t] = sum R[i,s] * x[i,t,s].
func addLoadRows(m *milp.Model, r *Region, p model.Parameters) {
	for t := 1; t <= p.Slots; t++ {
		var e milp.Expr
		e.Add(r.E[t-1], 1)
		for s := 1; s <= p.Systems; s++ {
			for i := 1; i <= p.Machines; i++ {
				if !p.Valid(i, s) {
					continue
				}
				e.Add(r.X[slotKey{i, t, s}], -p.Power(i, s))
			}
		}
		m.AddConstraint(fmt.Sprintf("load_%d", t), e, milp.EQ, 0)
	}
}

// addPeakRows is the epigraph linearization of the peak: PL >= e[t].
func addPeakRows(m *milp.Model, r *Region, p model.Parameters) {
	for t := 1; t <= p.Slots; t++ {
		var e milp.Expr
		e.Add(r.PL, 1)
		e.Add(r.E[t-1], -1)
		m.AddConstraint(fmt.Sprintf("peak_%d", t), e, milp.GE, 0)
	}
}

// addBudgetRows caps the net electricity spend per system. Budgets never
// pool across systems.
func addBudgetRows(m *milp.Model, r *Region, p model.Parameters) {
	for s := 1; s <= p.Systems; s++ {
		var e milp.Expr
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
		m.AddConstraint(fmt.Sprintf("budget_%d", s), e, milp.LE, p.Budgets[s])
	}
}

// addDurationRows requires at least MinSlots on-slots inside the allowed
// window. Contiguity is not imposed here, the single-run rows do that.
func addDurationRows(m *milp.Model, r *Region, p model.Parameters) {
	for s := 1; s <= p.Systems; s++ {
		for i := 1; i <= p.Machines; i++ {
			if !p.Valid(i, s) {
				continue
			}
			key := model.MachineKey{Machine: i, System: s}
			early, okE := p.EarliestSlot[key]
			late, okL := p.LatestSlot[key]
			if !okE || !okL {
				continue
			}
			if early < 1 {
				early = 1
			}
			if late > p.Slots {
				late = p.Slots
			}
			var e milp.Expr
			for t := early; t <= late; t++ {
				e.Add(r.X[slotKey{i, t, s}], 1)
			}
			m.AddConstraint(fmt.Sprintf("duration_%d_%d", i, s), e, milp.GE, float64(p.MinSlots[key]))
		}
	}
}

// addSingleRunRows encodes "at most one contiguous run, then permanently off"
// with three inequality families over the completion latch u:
//
//	x[t] <= 1 - u[t]          a completed machine can never be on again
//	x[t-1] - x[t] <= u[t]     an on-to-off transition raises the latch
//	u[t-1] <= u[t]            the latch never resets
func addSingleRunRows(m *milp.Model, r *Region, p model.Parameters) {
	for s := 1; s <= p.Systems; s++ {
		for i := 1; i <= p.Machines; i++ {
			if !p.Valid(i, s) {
				continue
			}
			for t := 1; t <= p.Slots; t++ {
				k := slotKey{i, t, s}
				var lock milp.Expr
				lock.Add(r.X[k], 1)
				lock.Add(r.U[k], 1)
				m.AddConstraint(fmt.Sprintf("no_restart_%d_%d_%d", i, t, s), lock, milp.LE, 1)

				if t >= 2 {
					prev := slotKey{i, t - 1, s}
					var latch milp.Expr
					latch.Add(r.X[prev], 1)
					latch.Add(r.X[k], -1)
					latch.Add(r.U[k], -1)
					m.AddConstraint(fmt.Sprintf("shutdown_latch_%d_%d_%d", i, t, s), latch, milp.LE, 0)

					var mono milp.Expr
					mono.Add(r.U[prev], 1)
					mono.Add(r.U[k], -1)
					m.AddConstraint(fmt.Sprintf("latch_monotone_%d_%d_%d", i, t, s), mono, milp.LE, 0)
				}
			}
		}
	}
}

// addPrecedenceRows gates a dependent machine on its predecessor's
// completion latch, not on its run variable: the predecessor must have fully
// finished, not merely started.
func addPrecedenceRows(m *milp.Model, r *Region, p model.Parameters) {
	// Ordered loops rather than map iteration keep row order, and therefore
	// solver input, deterministic.
	for s := 1; s <= p.Systems; s++ {
		for i := 1; i <= p.Machines; i++ {
			pred, ok := p.Predecessors[model.MachineKey{Machine: i, System: s}]
			if !ok || !p.Valid(i, s) || !p.Valid(pred, s) {
				continue
			}
			for t := 1; t <= p.Slots; t++ {
				var e milp.Expr
				e.Add(r.X[slotKey{i, t, s}], 1)
				e.Add(r.U[slotKey{pred, t, s}], -1)
				m.AddConstraint(fmt.Sprintf("precedence_%d_%d_%d_%d", i, pred, t, s), e, milp.LE, 0)
			}
		}
	}
}

// addIncentiveRows allows claiming an incentive only while operating.
func addIncentiveRows(m *milp.Model, r *Region, p model.Parameters) {
	for s := 1; s <= p.Systems; s++ {
		for i := 1; i <= p.Machines; i++ {
			if !p.Valid(i, s) {
				continue
			}
			for t := 1; t <= p.Slots; t++ {
				k := slotKey{i, t, s}
				var e milp.Expr
				e.Add(r.Y[k], 1)
				e.Add(r.X[k], -1)
				m.AddConstraint(fmt.Sprintf("incentive_%d_%d_%d", i, t, s), e, milp.LE, 0)
			}
		}
	}
}
