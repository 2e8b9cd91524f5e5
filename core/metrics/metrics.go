package metrics

import (
	"time"

	"github.com/rvigier/loadshift/core/model"
)

// SolveEvent describes one solver invocation, including the calibration
// solves issued while estimating ideal and nadir points.
type SolveEvent struct {
	Approach string
	Phase    string
	Status   string
	Duration time.Duration
}

// Sink records solve events and extracted results for observability purposes.
type Sink interface {
	RecordSolve(ev SolveEvent) error
	RecordResult(res *model.Result) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error     { return nil }
func (NopSink) RecordResult(*model.Result) error { return nil }
