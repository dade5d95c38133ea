package engine

import (
	"context"

	"github.com/rs/zerolog"

	"video-variator/internal/filterchain"
)

// PassthroughEngine is a lower-tier adapter that performs no transformation:
// it returns the input bytes unchanged, relabeled with a fallback marker in
// the applied list. Real decode/filter/encode pipelines for these tiers are
// out of scope; this reproduces the documented behavior.
type PassthroughEngine struct {
	stateMachine

	name   string
	marker string
	logger zerolog.Logger
}

// NewPlatformCodecEngine creates the platform-codec-tier pass-through.
func NewPlatformCodecEngine(logger zerolog.Logger) *PassthroughEngine {
	return &PassthroughEngine{
		name:   "platform-codec",
		marker: "platformCodec-fallback",
		logger: logger.With().Str("component", "platform-codec").Logger(),
	}
}

// NewCanvasEngine creates the canvas-tier pass-through, the universal
// baseline that never fails.
func NewCanvasEngine(logger zerolog.Logger) *PassthroughEngine {
	return &PassthroughEngine{
		name:   "canvas",
		marker: "canvas-fallback",
		logger: logger.With().Str("component", "canvas").Logger(),
	}
}

func (e *PassthroughEngine) Name() string { return e.name }

// Initialize always succeeds; pass-through tiers have no external resources.
func (e *PassthroughEngine) Initialize(ctx context.Context) error {
	return e.initialize(func() error {
		return ctx.Err()
	})
}

// Process copies the input through unchanged and appends the tier marker.
func (e *PassthroughEngine) Process(ctx context.Context, input []byte, recipe filterchain.Recipe, onProgress ProgressFunc) (*Result, error) {
	if e.State() != StateReady {
		return nil, ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if onProgress != nil {
		onProgress(0)
	}

	output := append([]byte(nil), input...)
	applied := append([]string(nil), recipe.Applied...)
	applied = append(applied, e.marker)

	e.logger.Debug().Int("bytes", len(output)).Msg("pass-through processing")

	if onProgress != nil {
		onProgress(100)
	}

	return &Result{
		Output:  output,
		Applied: applied,
		Metadata: Metadata{
			Size:             int64(len(output)),
			Format:           "mp4",
			ProcessingTimeMs: 0,
			Duration:         0,
		},
	}, nil
}
