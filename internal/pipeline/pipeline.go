package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/m1k1o/go-mediapipe/internal/storage"
	"github.com/m1k1o/go-mediapipe/pkg/ladder"
	"github.com/m1k1o/go-mediapipe/pkg/orchestrator"
	"github.com/m1k1o/go-mediapipe/pkg/probe"
	"github.com/m1k1o/go-mediapipe/pkg/publisher"
)

type ProbeFunc func(ctx context.Context, ffprobeBinary, path string) (*probe.SourceProbe, error)

type Transcoder interface {
	Run(ctx context.Context, input orchestrator.Input) (*orchestrator.MasterManifest, error)
}

type Publisher interface {
	Publish(ctx context.Context, req publisher.Request) (*storage.VideoAsset, error)
}

type Config struct {
	FFprobeBinary string
	WorkDir       string // empty for os.TempDir

	Probe ProbeFunc
}

func (c Config) withDefaultValues() Config {
	if c.FFprobeBinary == "" {
		c.FFprobeBinary = "ffprobe"
	}
	if c.Probe == nil {
		c.Probe = probe.Probe
	}
	return c
}

type RunnerCtx struct {
	logger zerolog.Logger
	config Config

	transcoder Transcoder
	publisher  Publisher
}

func New(config Config, transcoder Transcoder, publisher Publisher) *RunnerCtx {
	return &RunnerCtx{
		logger:     log.With().Str("module", "pipeline").Logger(),
		config:     config.withDefaultValues(),
		transcoder: transcoder,
		publisher:  publisher,
	}
}

// Run probes, transcodes and publishes one source file. The working
// directory is removed whether or not the job succeeds.
func (r *RunnerCtx) Run(ctx context.Context, job Job) (*storage.VideoAsset, error) {
	job = job.withDefaultValues()
	if err := job.validate(); err != nil {
		return nil, err
	}

	logger := r.logger.With().Str("video_id", job.VideoID).Str("source", job.SourcePath).Logger()

	if _, err := os.Stat(job.SourcePath); err != nil {
		return nil, fmt.Errorf("source not accessible: %w", err)
	}

	source, err := r.config.Probe(ctx, r.config.FFprobeBinary, job.SourcePath)
	if err != nil {
		return nil, err
	}

	specs := ladder.Select(source.Height)
	logger.Info().
		Int("width", source.Width).
		Int("height", source.Height).
		Float64("duration", source.Duration).
		Strs("ladder", ladder.Labels(specs)).
		Msg("source probed")

	workDir, err := os.MkdirTemp(r.config.WorkDir, "mediapipe-"+job.VideoID+"-")
	if err != nil {
		return nil, fmt.Errorf("unable to create working directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn().Err(err).Str("dir", workDir).Msg("unable to remove working directory")
		}
	}()

	manifest, err := r.transcoder.Run(ctx, orchestrator.Input{
		SourcePath: job.SourcePath,
		OutputDir:  workDir,
		Probe:      source,
		Ladder:     specs,
	})
	if err != nil {
		return nil, err
	}

	if manifest.Partial {
		logger.Warn().Int("failed", len(manifest.Failures)).Msg("publishing partial ladder")
	}

	return r.publisher.Publish(ctx, publisher.Request{
		OutputDir:   workDir,
		Manifest:    manifest,
		UserID:      job.UserID,
		VideoID:     job.VideoID,
		Title:       job.Title,
		Description: job.Description,
		Duration:    source.Duration,
		Category:    job.Category,
		Genre:       job.Genre,
		Tags:        job.Tags,
		Visibility:  job.Visibility,
	})
}
