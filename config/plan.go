package config

import (
	"fmt"

	"github.com/rvigier/loadshift/core/model"
	"github.com/rvigier/loadshift/core/schedule"
)

// PlanConfig selects the approaches to run and their weights.
type PlanConfig struct {
	// Approaches lists the approaches to run, in order.
	Approaches []string `json:"approaches"`
	// WeightedSum and Compromise carry the scalarization weights.
	WeightedSum model.Weights `json:"weighted_sum"`
	Compromise  model.Weights `json:"compromise"`
	// Publish names the approach whose schedule is published and stored as
	// the selected one. Falls back to the first available result.
	Publish string `json:"publish"`
	// RelaxationBounds logs LP-relaxation lower bounds before solving.
	RelaxationBounds bool `json:"relaxation_bounds"`
}

// SetDefaults applies the standard run: all four approaches, cost-leaning
// weighted sum, balanced compromise.
func (c *PlanConfig) SetDefaults() {
	if len(c.Approaches) == 0 {
		c.Approaches = []string{
			schedule.ApproachECFirst,
			schedule.ApproachPLFirst,
			schedule.ApproachWeightedSum,
			schedule.ApproachCompromise,
		}
	}
	if c.WeightedSum == (model.Weights{}) {
		c.WeightedSum = model.Weights{EC: 0.7, PL: 0.3}
	}
	if c.Compromise == (model.Weights{}) {
		c.Compromise = model.Weights{EC: 0.5, PL: 0.5}
	}
	if c.Publish == "" {
		c.Publish = schedule.ApproachWeightedSum
	}
}

// Validate rejects unknown approach names.
func (c PlanConfig) Validate() error {
	known := map[string]bool{
		schedule.ApproachECFirst:     true,
		schedule.ApproachPLFirst:     true,
		schedule.ApproachWeightedSum: true,
		schedule.ApproachCompromise:  true,
	}
	for _, a := range c.Approaches {
		if !known[a] {
			return fmt.Errorf("unknown approach %q", a)
		}
	}
	if !known[c.Publish] {
		return fmt.Errorf("unknown publish approach %q", c.Publish)
	}
	return nil
}
