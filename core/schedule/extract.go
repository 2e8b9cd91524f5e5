package schedule

import (
	"fmt"

	"github.com/rvigier/loadshift/core/milp"
	"github.com/rvigier/loadshift/core/model"
)

// ExtractResult converts a solved assignment into the approach's result.
// EC is recomputed from the variable values rather than read from the
// objective, since the objective may be a normalized or derived quantity;
// the recomputation doubles as a consistency check. Binary values are
// rounded through a 0.5 threshold to absorb solver tolerance.
func ExtractResult(p model.Parameters, r *Region, sol *milp.Solution, approach string) (*model.Result, error) {
	if sol.Status != milp.StatusOptimal {
		return nil, fmt.Errorf("%s: status %s: %w", approach, sol.Status, ErrNoSolution)
	}

	var ec float64
	for s := 1; s <= p.Systems; s++ {
		for i := 1; i <= p.Machines; i++ {
			if !p.Valid(i, s) {
				continue
			}
			for t := 1; t <= p.Slots; t++ {
				k := slotKey{i, t, s}
				xv := sol.Value(r.X[k])
				yv := sol.Value(r.Y[k])
				ec += p.Power(i, s) * (p.Prices[t]*xv - p.Incentives[t]*yv) * p.SlotHours
			}
		}
	}

	schedule := make([]model.ScheduleEntry, 0, len(r.X))
	for s := 1; s <= p.Systems; s++ {
		for i := 1; i <= p.Machines; i++ {
			if !p.Valid(i, s) {
				continue
			}
			for t := 1; t <= p.Slots; t++ {
				entry := model.ScheduleEntry{SystemID: s, MachineID: i, TimeSlot: t}
				if sol.Value(r.X[slotKey{i, t, s}]) > 0.5 {
					entry.Status = 1
					entry.Power = p.Power(i, s)
				}
				schedule = append(schedule, entry)
			}
		}
	}

	profile := make(map[int]float64, p.Slots)
	for t := 1; t <= p.Slots; t++ {
		profile[t] = sol.Value(r.E[t-1])
	}

	return &model.Result{
		Approach:    approach,
		EC:          ec,
		PL:          sol.Value(r.PL),
		Schedule:    schedule,
		LoadProfile: profile,
	}, nil
}
