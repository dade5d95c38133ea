package engine

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"video-variator/internal/filterchain"
)

// CodecSettings groups the per-container encoder configuration.
type CodecSettings struct {
	VideoCodec    string
	AudioCodec    string
	FileExtension string
	EncoderArgs   ffmpeg.KwArgs
}

var codecPresets = map[string]CodecSettings{
	"mp4": {
		VideoCodec:    "libx264",
		AudioCodec:    "aac",
		FileExtension: ".mp4",
		EncoderArgs: ffmpeg.KwArgs{
			"preset":   "medium",
			"movflags": "+faststart",
		},
	},
	"webm": {
		VideoCodec:    "libvpx-vp9",
		AudioCodec:    "libopus",
		FileExtension: ".webm",
		EncoderArgs: ffmpeg.KwArgs{
			"deadline": "good",
			"cpu-used": 2,
			"row-mt":   1,
		},
	},
}

// GetCodecSettings returns the encoder configuration for an output format,
// defaulting to mp4 for unknown formats.
func GetCodecSettings(outputFormat string) CodecSettings {
	if settings, ok := codecPresets[outputFormat]; ok {
		return settings
	}
	return codecPresets["mp4"]
}

// FullEngine runs recipes through ffmpeg. It is the only tier that performs
// real transformation work; initialization verifies the external binaries and
// may fail, in which case callers fall back to a lower tier.
type FullEngine struct {
	stateMachine

	logger  zerolog.Logger
	format  string
	workDir string
}

// NewFullEngine creates an uninitialized ffmpeg-backed engine producing the
// given output format ("mp4" or "webm").
func NewFullEngine(logger zerolog.Logger, format string) *FullEngine {
	if _, ok := codecPresets[format]; !ok {
		format = "mp4"
	}
	return &FullEngine{
		logger:  logger.With().Str("component", "full-engine").Logger(),
		format:  format,
		workDir: os.TempDir(),
	}
}

func (e *FullEngine) Name() string { return "full-engine" }

// Initialize locates the ffmpeg and ffprobe binaries. The outcome is sticky:
// a second call while ready is a no-op and a failed engine stays failed.
func (e *FullEngine) Initialize(ctx context.Context) error {
	return e.initialize(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := exec.LookPath("ffmpeg"); err != nil {
			return errors.Wrap(err, "ffmpeg not found in PATH")
		}
		if _, err := exec.LookPath("ffprobe"); err != nil {
			return errors.Wrap(err, "ffprobe not found in PATH")
		}
		e.logger.Debug().Msg("ffmpeg engine ready")
		return nil
	})
}

// Process writes the input to a working file, runs the serialized recipe
// through ffmpeg and reads the produced bytes back. Intermediate files are
// removed before returning.
func (e *FullEngine) Process(ctx context.Context, input []byte, recipe filterchain.Recipe, onProgress ProgressFunc) (*Result, error) {
	if e.State() != StateReady {
		return nil, ErrNotReady
	}

	started := time.Now()

	inFile, err := os.CreateTemp(e.workDir, "variation-in-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create working file")
	}
	inPath := inFile.Name()
	defer os.Remove(inPath)

	if _, err := inFile.Write(input); err != nil {
		inFile.Close()
		return nil, errors.Wrap(err, "failed to write working file")
	}
	if err := inFile.Close(); err != nil {
		return nil, errors.WithStack(err)
	}

	metadata, err := probeVideo(inPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to probe input video")
	}

	settings := GetCodecSettings(e.format)
	outPath := inPath + "-out" + settings.FileExtension
	defer os.Remove(outPath)

	cmd := e.compileCommand(inPath, outPath, recipe, settings)

	if err := e.runWithProgress(ctx, cmd, metadata.Duration-recipe.TrimStart, onProgress); err != nil {
		return nil, err
	}

	output, err := os.ReadFile(outPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read produced video")
	}

	duration := 0.0
	if outMeta, err := probeVideo(outPath); err == nil {
		duration = outMeta.Duration
	}

	if onProgress != nil {
		onProgress(100)
	}

	return &Result{
		Output:  output,
		Applied: append([]string(nil), recipe.Applied...),
		Metadata: Metadata{
			Size:             int64(len(output)),
			Format:           e.format,
			ProcessingTimeMs: time.Since(started).Milliseconds(),
			Duration:         duration,
		},
	}, nil
}

// compileCommand serializes the recipe into ffmpeg arguments.
func (e *FullEngine) compileCommand(inPath, outPath string, recipe filterchain.Recipe, settings CodecSettings) *exec.Cmd {
	inputKwargs := ffmpeg.KwArgs{}
	if recipe.HasTrim {
		inputKwargs["ss"] = fmt.Sprintf("%.2f", recipe.TrimStart)
	}

	outputKwargs := ffmpeg.KwArgs{
		"c:v":     settings.VideoCodec,
		"c:a":     settings.AudioCodec,
		"crf":     recipe.CRF,
		"pix_fmt": "yuv420p",
		"threads": optimalThreadCount(),
	}
	for k, v := range settings.EncoderArgs {
		outputKwargs[k] = v
	}

	if graph := recipe.FilterGraph(); graph != "" {
		outputKwargs["vf"] = graph
	}
	if recipe.BitrateKbps > 0 {
		outputKwargs["b:v"] = fmt.Sprintf("%dk", recipe.BitrateKbps)
	}
	if recipe.FrameRate > 0 {
		outputKwargs["r"] = fmt.Sprintf("%.2f", recipe.FrameRate)
	}
	if recipe.HasVolume {
		outputKwargs["af"] = fmt.Sprintf("volume=%.2fdB", recipe.VolumeDB)
	}

	e.logger.Debug().
		Str("input", inPath).
		Str("output", outPath).
		Str("vf", recipe.FilterGraph()).
		Int("crf", recipe.CRF).
		Msg("compiling ffmpeg command")

	cmd := ffmpeg.Input(inPath, inputKwargs).
		Output(outPath, outputKwargs).
		OverWriteOutput().
		GlobalArgs("-hide_banner", "-loglevel", "error", "-progress", "pipe:2").
		Compile()

	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd
}

// runWithProgress executes ffmpeg and converts its -progress stream into
// throttled, monotonically non-decreasing percent callbacks.
func (e *FullEngine) runWithProgress(ctx context.Context, cmd *exec.Cmd, duration float64, onProgress ProgressFunc) error {
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(err, "failed to create stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start ffmpeg")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		last := -1.0
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			key, value, found := strings.Cut(line, "=")
			if !found {
				continue
			}
			if key != "out_time_us" && key != "out_time_ms" {
				continue
			}
			us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil || duration <= 0 {
				continue
			}

			percent := math.Min(float64(us)/1e6/duration*100, 99)
			// Throttle: surface whole-percent steps only, never backwards.
			if percent-last >= 1 {
				last = percent
				if onProgress != nil {
					onProgress(percent)
				}
			}
		}
	}()

	waitErr := cmd.Wait()
	<-done

	if waitErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(waitErr, "ffmpeg execution failed")
	}
	return nil
}

func optimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	return int(math.Max(1, float64(cpuCount)*0.75))
}
