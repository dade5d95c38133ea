package engine

import (
	"context"

	"github.com/rs/zerolog"
)

// Selector owns the three tier adapters and picks the strongest one whose
// initialization succeeds. Adapters are injected so jobs and tests control
// their own engine instances instead of sharing process-wide state.
type Selector struct {
	full   Engine
	codec  Engine
	canvas Engine
	logger zerolog.Logger
}

// NewSelector builds a selector over the given tier adapters, ordered from
// strongest to weakest.
func NewSelector(full, codec, canvas Engine, logger zerolog.Logger) *Selector {
	return &Selector{
		full:   full,
		codec:  codec,
		canvas: canvas,
		logger: logger.With().Str("component", "selector").Logger(),
	}
}

// Select returns the highest tier that initializes. A tier that fails is
// logged and skipped, never retried; the canvas tier is the terminal
// fallback.
func (s *Selector) Select(ctx context.Context) Engine {
	for _, eng := range []Engine{s.full, s.codec} {
		if eng == nil {
			continue
		}
		if err := eng.Initialize(ctx); err != nil {
			s.logger.Warn().Err(err).Str("engine", eng.Name()).Msg("tier unavailable, falling back")
			continue
		}
		return eng
	}

	// The canvas baseline cannot fail outside context cancellation.
	if err := s.canvas.Initialize(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("canvas initialization interrupted")
	}
	return s.canvas
}
