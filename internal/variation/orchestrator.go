// Package variation runs the sample → build → process loop that produces N
// randomized variations of one input video.
package variation

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"video-variator/internal/engine"
	"video-variator/internal/events"
	"video-variator/internal/filterchain"
	"video-variator/internal/params"
)

// Orchestrator drives variation jobs. Each iteration draws a fresh recipe and
// hands it to the selected engine; iterations are strictly sequential because
// the full-tier engine cannot run overlapping jobs.
type Orchestrator struct {
	selector *engine.Selector
	builder  *filterchain.Builder
	bus      *events.Bus
	logger   zerolog.Logger
}

// New creates an orchestrator publishing progress to the given bus.
func New(selector *engine.Selector, builder *filterchain.Builder, bus *events.Bus, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		selector: selector,
		builder:  builder,
		bus:      bus,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// GenerateVariations produces count variations of input. Results are ordered
// by invocation; any iteration failure aborts the call with no partial
// results. Progress events carry the 1-based variation index, monotonically
// increasing across iterations, with percent restarting near zero for each.
func (o *Orchestrator) GenerateVariations(ctx context.Context, jobID string, input []byte, spec *params.Spec, count int) ([]*engine.Result, error) {
	if count < 1 {
		return nil, errors.Errorf("variation count must be at least 1, got %d", count)
	}
	if err := spec.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid parameter spec")
	}

	eng := o.selector.Select(ctx)
	o.logger.Info().Str("engine", eng.Name()).Int("count", count).Str("job", jobID).Msg("starting variation job")
	o.publishStatus(jobID, "processing", "")

	results := make([]*engine.Result, 0, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			o.publishStatus(jobID, "error", err.Error())
			return nil, err
		}

		recipe := o.builder.Build(spec)
		o.publishProgress(jobID, i, 0)

		res, err := eng.Process(ctx, input, recipe, func(percent float64) {
			o.publishProgress(jobID, i, percent)
		})
		if err != nil {
			o.logger.Error().Err(err).Int("variation", i).Msg("variation failed")
			o.bus.Publish(events.Event{
				JobID:          jobID,
				Type:           events.TypeError,
				VariationIndex: i,
				Message:        err.Error(),
			})
			return nil, errors.Wrapf(err, "variation %d failed", i)
		}

		o.publishProgress(jobID, i, 100)
		o.bus.Publish(events.Event{
			JobID:          jobID,
			Type:           events.TypeResult,
			VariationIndex: i,
			Message:        eng.Name(),
		})
		results = append(results, res)
	}

	o.publishStatus(jobID, "completed", "")
	return results, nil
}

func (o *Orchestrator) publishProgress(jobID string, index int, percent float64) {
	o.bus.Publish(events.Event{
		JobID:          jobID,
		Type:           events.TypeProgress,
		VariationIndex: index,
		Percent:        percent,
	})
}

func (o *Orchestrator) publishStatus(jobID, status, message string) {
	o.bus.Publish(events.Event{
		JobID:   jobID,
		Type:    events.TypeStatus,
		Status:  status,
		Message: message,
	})
}
