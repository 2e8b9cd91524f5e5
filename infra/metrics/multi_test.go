package metrics

import (
	"errors"
	"testing"

	coremetrics "github.com/rvigier/loadshift/core/metrics"
	"github.com/rvigier/loadshift/core/model"
)

type countingSink struct {
	solves  int
	results int
	err     error
}

func (s *countingSink) RecordSolve(coremetrics.SolveEvent) error {
	s.solves++
	return s.err
}

func (s *countingSink) RecordResult(*model.Result) error {
	s.results++
	return s.err
}

func TestMultiSinkForwards(t *testing.T) {
	a := &countingSink{}
	b := &countingSink{}
	sink := NewMultiSink(a, b)

	if err := sink.RecordSolve(coremetrics.SolveEvent{Approach: "ec_first"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.RecordResult(&model.Result{Approach: "ec_first"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.solves != 1 || b.solves != 1 || a.results != 1 || b.results != 1 {
		t.Fatalf("expected all sinks to receive events: %+v %+v", a, b)
	}
}

func TestMultiSinkReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	a := &countingSink{err: boom}
	b := &countingSink{}
	sink := NewMultiSink(a, b)

	if err := sink.RecordSolve(coremetrics.SolveEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if b.solves != 0 {
		t.Fatalf("forwarding must stop at the first error")
	}
}
