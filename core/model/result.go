package model

import (
	"fmt"
	"strings"
)

// ScheduleEntry is one per-slot on/off decision for a machine. Status is 0
// or 1; Power is the rated power when on and 0 when off.
type ScheduleEntry struct {
	SystemID  int     `json:"system_id"`
	MachineID int     `json:"machine_id"`
	TimeSlot  int     `json:"time_slot"`
	Status    int     `json:"status"`
	Power     float64 `json:"power"`
}

// Result is the extracted outcome of one solved approach.
type Result struct {
	Approach    string          `json:"approach"`
	EC          float64         `json:"ec"`
	PL          float64         `json:"pl"`
	Schedule    []ScheduleEntry `json:"schedule"`
	LoadProfile map[int]float64 `json:"load_profile"`
}

// ComparisonRow is one line of the cross-approach comparison table.
type ComparisonRow struct {
	Approach string  `json:"approach"`
	EC       float64 `json:"ec"`
	PL       float64 `json:"pl"`
}

// Weights balances the two objectives in scalarized approaches. The weights
// are not required to sum to one.
type Weights struct {
	EC float64 `json:"ec"`
	PL float64 `json:"pl"`
}

// Summary renders a short human-readable digest of the result.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: EC=%.2f PL=%.2f", r.Approach, r.EC, r.PL)

	active := map[MachineKey]struct{}{}
	for _, e := range r.Schedule {
		if e.Status == 1 {
			active[MachineKey{Machine: e.MachineID, System: e.SystemID}] = struct{}{}
		}
	}
	fmt.Fprintf(&b, " active_machines=%d", len(active))

	if len(r.LoadProfile) > 0 {
		var sum, max float64
		min := -1.0
		for _, v := range r.LoadProfile {
			sum += v
			if v > max {
				max = v
			}
			if min < 0 || v < min {
				min = v
			}
		}
		fmt.Fprintf(&b, " load_avg=%.2f load_max=%.2f load_min=%.2f",
			sum/float64(len(r.LoadProfile)), max, min)
	}
	return b.String()
}
