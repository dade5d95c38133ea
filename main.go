package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"video-variator/internal/capability"
	"video-variator/internal/config"
	"video-variator/internal/engine"
	"video-variator/internal/events"
	"video-variator/internal/filterchain"
	"video-variator/internal/logging"
	"video-variator/internal/params"
	"video-variator/internal/server"
	"video-variator/internal/variation"
	"video-variator/pkg/variator"
)

var (
	rootCmd = &cobra.Command{
		Use:   "video-variator",
		Short: "Generate randomized variations of a video",
		Long: `video-variator produces randomized variations of an input video by sampling
color, geometry, timing and encoding parameters and applying them as an ffmpeg
filter chain. Each variation gets a fresh random draw, so no two outputs share
the same fingerprint.

Examples:
  # Produce 5 variations of a clip
  video-variator generate -i input.mp4 -o ./variations -n 5

  # Run the dashboard API
  video-variator serve --addr :8080`,
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Produce randomized variations of one input video",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &config.GenerateOptions{}

			opts.InputPath, _ = cmd.Flags().GetString("input")
			opts.OutputDir, _ = cmd.Flags().GetString("output")
			opts.Count, _ = cmd.Flags().GetInt("count")
			opts.OutputFormat, _ = cmd.Flags().GetString("format")
			opts.Quality, _ = cmd.Flags().GetInt("quality")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")

			if opts.InputPath == "" || opts.OutputDir == "" {
				return fmt.Errorf("input path and output directory are required")
			}

			logging.Init(opts.Verbose)
			paths, err := variator.Generate(cmd.Context(), opts, log.Logger)
			if err != nil {
				return err
			}

			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &config.ServeOptions{}

			opts.Addr, _ = cmd.Flags().GetString("addr")
			opts.SettingsPath, _ = cmd.Flags().GetString("settings")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")

			logging.Init(opts.Verbose)
			return runServer(cmd.Context(), opts)
		},
	}

	detectCmd = &cobra.Command{
		Use:   "detect",
		Short: "Report which processing tiers this host supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logging.Init(verbose)

			caps := variator.DetectCapabilities(cmd.Context(), log.Logger)
			fmt.Printf("full engine:    %s\n", yesNo(caps.FullEngine))
			fmt.Printf("platform codec: %s\n", yesNo(caps.PlatformCodec))
			fmt.Printf("canvas:         %s\n", yesNo(caps.Canvas))
			return nil
		},
	}
)

func runServer(ctx context.Context, opts *config.ServeOptions) error {
	settings, err := config.NewJSONStore(opts.SettingsPath).Load()
	if err != nil {
		return err
	}

	logger := log.Logger
	full := engine.NewFullEngine(logger, settings.DefaultFormat)
	if err := full.Initialize(ctx); err != nil {
		logger.Warn().Err(err).Msg("full engine unavailable, falling back")
	}
	selector := engine.NewSelector(full, engine.NewPlatformCodecEngine(logger), engine.NewCanvasEngine(logger), logger)

	bus := events.NewBus(4096)
	builder := filterchain.NewBuilder(params.NewSampler())
	orch := variation.New(selector, builder, bus, logger)
	queue := variation.NewQueue()
	detector := capability.NewDetector(full)

	srv := server.New(settings, orch, queue, bus, detector, logger)
	return srv.Run(opts.Addr)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	// .env is optional and must load before flag defaults read the
	// environment; explicit environment variables win.
	_ = godotenv.Load()

	generateCmd.Flags().StringP("input", "i", "", "Input video file")
	generateCmd.Flags().StringP("output", "o", "variations", "Output directory")
	generateCmd.Flags().IntP("count", "n", 3, "Number of variations to produce")
	generateCmd.Flags().String("format", "mp4", "Output container format (mp4 or webm)")
	generateCmd.Flags().Int("quality", 0, "Video quality 1-100 (0 keeps the default)")
	generateCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")

	generateCmd.MarkFlagRequired("input")

	serveCmd.Flags().String("addr", envOr("VARIATOR_ADDR", ":8080"), "Listen address")
	serveCmd.Flags().String("settings", envOr("VARIATOR_SETTINGS", "settings.json"), "Settings file path")
	serveCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")

	detectCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(detectCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
