package schedule

import "fmt"

// CalibrationConfig holds the heuristic constants used when estimating nadir
// points. The values are approximations carried over from operational tuning,
// not derived bounds; treat them as knobs, not guarantees.
type CalibrationConfig struct {
	// NadirInflation scales each objective's own optimum when the cross
	// value from the other objective's solve looks too optimistic.
	NadirInflation float64 `json:"nadir_inflation"`
	// FallbackScale multiplies the ideal when one of the calibration solves
	// fails outright.
	FallbackScale float64 `json:"fallback_scale"`
	// DefaultECNadir and DefaultPLNadir are used when even the ideal is
	// unavailable.
	DefaultECNadir float64 `json:"default_ec_nadir"`
	DefaultPLNadir float64 `json:"default_pl_nadir"`
	// PerturbFactor and PerturbOffset push a nadir away from an equal ideal
	// so normalization never divides by zero.
	PerturbFactor float64 `json:"perturb_factor"`
	PerturbOffset float64 `json:"perturb_offset"`
}

// SetDefaults fills zero fields with the standard constants.
func (c *CalibrationConfig) SetDefaults() {
	if c.NadirInflation == 0 {
		c.NadirInflation = 1.5
	}
	if c.FallbackScale == 0 {
		c.FallbackScale = 2.0
	}
	if c.DefaultECNadir == 0 {
		c.DefaultECNadir = 100
	}
	if c.DefaultPLNadir == 0 {
		c.DefaultPLNadir = 20
	}
	if c.PerturbFactor == 0 {
		c.PerturbFactor = 1.1
	}
	if c.PerturbOffset == 0 {
		c.PerturbOffset = 0.1
	}
}

// Config tunes the planner's numerical behavior.
type Config struct {
	// FreezeTolerance relaxes the frozen objective in the preemptive
	// approaches. 1.001 keeps the true optimum inside the feasible set in
	// spite of solver floating-point tolerance.
	FreezeTolerance float64 `json:"freeze_tolerance"`
	// DeviationEpsilon floors the denominators of the compromise deviation
	// rows.
	DeviationEpsilon float64 `json:"deviation_epsilon"`
	// IdealFloor substitutes an unavailable (or zero) ideal point in
	// compromise programming.
	IdealFloor float64 `json:"ideal_floor"`

	Calibration CalibrationConfig `json:"calibration"`
}

// SetDefaults fills zero fields with the standard constants.
func (c *Config) SetDefaults() {
	if c.FreezeTolerance == 0 {
		c.FreezeTolerance = 1.001
	}
	if c.DeviationEpsilon == 0 {
		c.DeviationEpsilon = 0.001
	}
	if c.IdealFloor == 0 {
		c.IdealFloor = 0.1
	}
	c.Calibration.SetDefaults()
}

// Validate rejects values that would break the formulations.
func (c Config) Validate() error {
	if c.FreezeTolerance < 1 {
		return fmt.Errorf("freeze_tolerance must be >= 1, got %v", c.FreezeTolerance)
	}
	if c.DeviationEpsilon <= 0 {
		return fmt.Errorf("deviation_epsilon must be positive, got %v", c.DeviationEpsilon)
	}
	if c.IdealFloor <= 0 {
		return fmt.Errorf("ideal_floor must be positive, got %v", c.IdealFloor)
	}
	if c.Calibration.NadirInflation <= 1 {
		return fmt.Errorf("nadir_inflation must be > 1, got %v", c.Calibration.NadirInflation)
	}
	return nil
}
