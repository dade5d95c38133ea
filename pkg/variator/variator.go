// Package variator is the public entry point for one-shot variation runs. It
// wires the sampling, filter-chain and engine layers together so callers only
// deal with file paths and options.
package variator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"video-variator/internal/capability"
	"video-variator/internal/config"
	"video-variator/internal/engine"
	"video-variator/internal/events"
	"video-variator/internal/export"
	"video-variator/internal/filterchain"
	"video-variator/internal/params"
	"video-variator/internal/variation"
)

// Generate runs a complete variation job: it reads the input video, produces
// opts.Count randomized variations with the default parameter spec and writes
// them to opts.OutputDir alongside their metadata files. The best available
// engine tier is chosen automatically.
func Generate(ctx context.Context, opts *config.GenerateOptions, logger zerolog.Logger) ([]string, error) {
	format := opts.OutputFormat
	if format == "" {
		format = "mp4"
	}
	if format != "mp4" && format != "webm" {
		return nil, errors.Errorf("unsupported output format %q, want mp4 or webm", format)
	}

	count := opts.Count
	if count < 1 {
		count = 1
	}

	spec := params.DefaultSpec()
	if opts.Quality != 0 {
		spec.VideoQuality = opts.Quality
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	input, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read input video %s", opts.InputPath)
	}

	bus := events.NewBus(1024)
	stop := logProgress(bus, logger)
	defer stop()

	full := engine.NewFullEngine(logger, format)
	selector := engine.NewSelector(full, engine.NewPlatformCodecEngine(logger), engine.NewCanvasEngine(logger), logger)
	builder := filterchain.NewBuilder(params.NewSampler())
	orch := variation.New(selector, builder, bus, logger)

	jobID := uuid.NewString()
	results, err := orch.GenerateVariations(ctx, jobID, input, spec, count)
	if err != nil {
		return nil, err
	}

	exporter, err := export.New(opts.OutputDir, logger)
	if err != nil {
		return nil, err
	}
	paths, err := exporter.ExportAll(filepath.Base(opts.InputPath), results)
	if err != nil {
		return paths, err
	}

	for _, res := range results {
		res.Release()
	}
	return paths, nil
}

// DetectCapabilities attempts full-engine initialization, then reports which
// processing tiers this host supports.
func DetectCapabilities(ctx context.Context, logger zerolog.Logger) capability.Capabilities {
	full := engine.NewFullEngine(logger, "mp4")
	if err := full.Initialize(ctx); err != nil {
		logger.Warn().Err(err).Msg("full engine unavailable")
	}
	return capability.NewDetector(full).Detect()
}

// logProgress mirrors bus events onto the logger so CLI runs show per-variation
// progress. Returns a stop function that drains the subscription.
func logProgress(bus *events.Bus, logger zerolog.Logger) func() {
	ch, cancel := bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		lastLogged := map[int]float64{}
		for ev := range ch {
			switch ev.Type {
			case events.TypeProgress:
				// Whole-percent events still arrive quickly; log every 10%.
				if ev.Percent-lastLogged[ev.VariationIndex] >= 10 || ev.Percent == 100 {
					lastLogged[ev.VariationIndex] = ev.Percent
					logger.Info().Int("variation", ev.VariationIndex).Float64("percent", ev.Percent).Msg("processing")
				}
			case events.TypeResult:
				logger.Info().Int("variation", ev.VariationIndex).Str("engine", ev.Message).Msg("variation done")
			case events.TypeError:
				logger.Error().Int("variation", ev.VariationIndex).Str("error", ev.Message).Msg("variation failed")
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
