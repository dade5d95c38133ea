// Package export writes produced variations and their metadata to disk using
// the {base}_variation_{n} naming scheme.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"video-variator/internal/engine"
)

// Exporter saves variation results into one output directory.
type Exporter struct {
	outDir string
	logger zerolog.Logger
}

// New creates an exporter, creating the output directory if needed.
func New(outDir string, logger zerolog.Logger) (*Exporter, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %s", outDir)
	}
	return &Exporter{
		outDir: outDir,
		logger: logger.With().Str("component", "export").Logger(),
	}, nil
}

// resultMetadata is the serialized shape of one variation's metadata file.
type resultMetadata struct {
	AppliedFilters []string        `json:"appliedFilters"`
	Metadata       engine.Metadata `json:"metadata"`
}

// ExportResult writes one variation's video and pretty-printed metadata JSON.
// n is the 1-based variation number.
func (e *Exporter) ExportResult(baseName string, n int, res *engine.Result) (videoPath, metaPath string, err error) {
	if res.Released() {
		return "", "", errors.New("result has been released")
	}

	base := sanitizeBaseName(baseName)
	stem := fmt.Sprintf("%s_variation_%d", base, n)
	videoPath = filepath.Join(e.outDir, stem+extensionFor(res.Metadata.Format))
	metaPath = filepath.Join(e.outDir, stem+"_metadata.json")

	if err := os.WriteFile(videoPath, res.Output, 0o644); err != nil {
		return "", "", errors.Wrapf(err, "failed to write %s", videoPath)
	}

	meta, err := json.MarshalIndent(resultMetadata{
		AppliedFilters: res.Applied,
		Metadata:       res.Metadata,
	}, "", "  ")
	if err != nil {
		return "", "", errors.WithStack(err)
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return "", "", errors.Wrapf(err, "failed to write %s", metaPath)
	}

	e.logger.Info().Str("video", videoPath).Int64("bytes", res.Metadata.Size).Msg("exported variation")
	return videoPath, metaPath, nil
}

// ExportAll runs the single-file routine once per result. A failing export is
// logged and skipped so the remaining results still land on disk; the last
// failure is returned.
func (e *Exporter) ExportAll(baseName string, results []*engine.Result) ([]string, error) {
	var paths []string
	var lastErr error
	for i, res := range results {
		videoPath, metaPath, err := e.ExportResult(baseName, i+1, res)
		if err != nil {
			e.logger.Error().Err(err).Int("variation", i+1).Msg("export failed")
			lastErr = err
			continue
		}
		paths = append(paths, videoPath, metaPath)
	}
	return paths, lastErr
}

// sanitizeBaseName strips the container extension and any characters that do
// not belong in a filename.
func sanitizeBaseName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	reg := regexp.MustCompile(`[^a-zA-Z0-9-_.]`)
	base = reg.ReplaceAllString(base, "_")

	reg = regexp.MustCompile(`_+`)
	base = reg.ReplaceAllString(base, "_")

	base = strings.Trim(base, "_")
	if base == "" {
		base = "video"
	}
	return base
}

func extensionFor(format string) string {
	switch format {
	case "webm":
		return ".webm"
	default:
		return ".mp4"
	}
}
