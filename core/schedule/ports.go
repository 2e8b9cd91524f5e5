package schedule

import (
	"context"

	"github.com/rvigier/loadshift/core/model"
)

// ParameterSource supplies already-typed planning parameters. Parsing and
// coercion of raw input happens behind this boundary, never in the core.
type ParameterSource interface {
	LoadParameters(ctx context.Context) (model.Parameters, error)
}

// ResultStore persists per-approach results and the comparison table.
type ResultStore interface {
	SaveResult(ctx context.Context, res *model.Result) error
	SaveComparison(ctx context.Context, rows []model.ComparisonRow) error
}

// SchedulePublisher pushes a finished schedule to downstream consumers.
type SchedulePublisher interface {
	PublishSchedule(ctx context.Context, res *model.Result) error
}
