package metrics

import (
	coremetrics "github.com/rvigier/loadshift/core/metrics"
	"github.com/rvigier/loadshift/core/model"
)

// MultiSink fanouts events to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordSolve(ev coremetrics.SolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordResult forwards the result to all sinks.
func (m *MultiSink) RecordResult(res *model.Result) error {
	for _, s := range m.Sinks {
		if err := s.RecordResult(res); err != nil {
			return err
		}
	}
	return nil
}
