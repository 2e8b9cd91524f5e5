package model

import "fmt"

// MachineKey identifies a machine within a system. Machines, time slots and
// systems are 1-based, matching the plant numbering used in the input data.
type MachineKey struct {
	Machine int
	System  int
}

// Parameters is the immutable input of one planning run. A (machine, system)
// pair exists only if it has an entry in RatedPower; pairs absent from the
// mapping are excluded from the model entirely, they are not an error.
type Parameters struct {
	Machines int // I
	Slots    int // T
	Systems  int // S

	RatedPower   map[MachineKey]float64 // kW drawn while on
	MinSlots     map[MachineKey]int     // required on-slots within the window
	EarliestSlot map[MachineKey]int     // window start, inclusive
	LatestSlot   map[MachineKey]int     // window end, inclusive
	Predecessors map[MachineKey]int     // machine that must complete first

	Prices     map[int]float64 // per-slot ToU price
	Incentives map[int]float64 // per-slot incentive payment
	SlotHours  float64         // duration of one slot, hours
	Budgets    map[int]float64 // per-system net spend cap
}

// Valid reports whether (machine, system) exists, i.e. has a rated power.
func (p Parameters) Valid(machine, system int) bool {
	_, ok := p.RatedPower[MachineKey{Machine: machine, System: system}]
	return ok
}

// Power returns the rated power of a pair, or 0 if it does not exist.
func (p Parameters) Power(machine, system int) float64 {
	return p.RatedPower[MachineKey{Machine: machine, System: system}]
}

// Validate checks the structural pieces the planner cannot work without.
func (p Parameters) Validate() error {
	if p.Machines <= 0 || p.Slots <= 0 || p.Systems <= 0 {
		return fmt.Errorf("counts must be positive: machines=%d slots=%d systems=%d",
			p.Machines, p.Slots, p.Systems)
	}
	if p.SlotHours <= 0 {
		return fmt.Errorf("slot duration must be positive: %v", p.SlotHours)
	}
	if len(p.RatedPower) == 0 {
		return fmt.Errorf("no machine has a rated power")
	}
	for s := 1; s <= p.Systems; s++ {
		if _, ok := p.Budgets[s]; !ok {
			return fmt.Errorf("missing budget for system %d", s)
		}
	}
	return nil
}
