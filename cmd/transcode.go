package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-mediapipe/internal/config"
	"github.com/m1k1o/go-mediapipe/internal/pipeline"
	"github.com/m1k1o/go-mediapipe/internal/storage"
	"github.com/m1k1o/go-mediapipe/pkg/encoder"
	"github.com/m1k1o/go-mediapipe/pkg/orchestrator"
	"github.com/m1k1o/go-mediapipe/pkg/publisher"
)

func init() {
	pipelineConfig := &config.Pipeline{}

	var job pipeline.Job
	var visibility string

	command := &cobra.Command{
		Use:   "transcode SOURCE",
		Short: "transcode a video and publish it",
		Long:  `transcode a video to an HLS rendition ladder and publish it to object storage`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			job.SourcePath = args[0]
			job.Visibility = storage.Visibility(visibility)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			asset, err := runTranscode(ctx, pipelineConfig, job)
			if err != nil {
				log.Error().Err(err).Str("source", job.SourcePath).Msg("transcode failed")
				stop()
				os.Exit(1)
			}

			log.Info().
				Str("id", asset.ID).
				Str("master", asset.MasterPlaylist).
				Int("renditions", len(asset.Renditions)).
				Msg("video published")
		},
	}

	cobra.OnInitialize(pipelineConfig.Set)

	if err := pipelineConfig.Init(command); err != nil {
		log.Panic().Err(err).Msg("unable to run transcode command")
	}

	command.Flags().StringVar(&job.Title, "title", "", "video title")
	command.Flags().StringVar(&job.Description, "description", "", "video description")
	command.Flags().StringVar(&job.UserID, "user", pipeline.DefaultUserID, "owner of the video")
	command.Flags().StringVar(&job.VideoID, "video-id", "", "video id, generated when empty")
	command.Flags().StringVar(&job.Category, "category", "", "video category")
	command.Flags().StringVar(&job.Genre, "genre", "", "video genre")
	command.Flags().StringSliceVar(&job.Tags, "tags", []string{}, "comma separated video tags")
	command.Flags().StringVar(&visibility, "visibility", string(storage.VisibilityPublic), "public, unlisted or private")
	_ = command.MarkFlagRequired("title")

	rootCmd.AddCommand(command)
}

func runTranscode(ctx context.Context, cfg *config.Pipeline, job pipeline.Job) (*storage.VideoAsset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.With().Str("service", "transcode").Logger()

	encoderConfig := encoder.Config{
		FFmpegBinary:    cfg.FFmpegBinary,
		SegmentDuration: cfg.SegmentDuration,
		HardwareCodec:   cfg.HardwareCodec,
	}

	var hardware encoder.Backend
	switch cfg.Hardware {
	case config.HardwareOn:
		hardware = encoder.NewFFmpeg(encoder.KindHardware, encoderConfig)
	case config.HardwareAuto:
		if encoder.DetectHardware(ctx, cfg.FFmpegBinary, cfg.HardwareCodec) {
			hardware = encoder.NewFFmpeg(encoder.KindHardware, encoderConfig)
		}
	}
	logger.Info().Bool("hardware", hardware != nil).Str("codec", cfg.HardwareCodec).Msg("encoder selected")

	store, err := storage.NewS3Store(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}

	meta, err := storage.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	defer meta.Close()

	if cfg.EnsureSchema {
		if err := meta.EnsureSchema(ctx); err != nil {
			return nil, err
		}
	}

	transcoder := orchestrator.New(&orchestrator.Config{
		Hardware:    hardware,
		Software:    encoder.NewFFmpeg(encoder.KindSoftware, encoderConfig),
		Observer:    newProgressLogger(logger),
		MaxParallel: cfg.MaxParallel,
	})

	pub := publisher.New(store, meta, publisher.Config{
		UploadConcurrency: cfg.UploadConcurrency,
	})

	runner := pipeline.New(pipeline.Config{
		FFprobeBinary: cfg.FFprobeBinary,
		WorkDir:       cfg.WorkDir,
	}, transcoder, pub)

	asset, err := runner.Run(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("unable to process %s: %w", job.SourcePath, err)
	}

	return asset, nil
}

// progressLogger logs encoder progress in steps of ten percent.
type progressLogger struct {
	logger zerolog.Logger

	mu   sync.Mutex
	last map[string]int
}

func newProgressLogger(logger zerolog.Logger) *progressLogger {
	return &progressLogger{
		logger: logger,
		last:   map[string]int{},
	}
}

func (p *progressLogger) OnProgress(label string, percent float64, stats encoder.Stats) {
	step := int(math.Floor(percent / 10))

	p.mu.Lock()
	last, ok := p.last[label]
	if ok && step <= last {
		p.mu.Unlock()
		return
	}
	p.last[label] = step
	p.mu.Unlock()

	p.logger.Info().
		Str("label", label).
		Float64("percent", math.Round(percent*10)/10).
		Float64("fps", stats.FPS).
		Float64("speed", stats.Speed).
		Msg("encoding")
}
