package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/m1k1o/go-mediapipe/internal/metrics"
	"github.com/m1k1o/go-mediapipe/pkg/encoder"
)

type ManagerCtx struct {
	logger zerolog.Logger
	config Config

	// software encodes never run concurrently
	software *semaphore.Weighted
}

func New(config *Config) *ManagerCtx {
	return &ManagerCtx{
		logger:   log.With().Str("module", "orchestrator").Logger(),
		config:   config.withDefaultValues(),
		software: semaphore.NewWeighted(1),
	}
}

// Concurrent reports whether a ladder of given size is encoded in parallel.
func (m *ManagerCtx) Concurrent(tiers int) bool {
	return m.config.Hardware != nil && tiers <= m.config.MaxParallel
}

func (m *ManagerCtx) Run(ctx context.Context, input Input) (*MasterManifest, error) {
	if len(input.Ladder) == 0 {
		return nil, fmt.Errorf("empty rendition ladder")
	}

	backend := encoder.KindSoftware
	if m.config.Hardware != nil {
		backend = encoder.KindHardware
	}

	jobs := make([]*EncodeJob, 0, len(input.Ladder))
	for _, spec := range input.Ladder {
		jobs = append(jobs, &EncodeJob{
			Spec:    spec,
			Backend: backend,
			State:   StatePending,
		})
	}

	concurrent := m.Concurrent(len(jobs))
	m.logger.Info().
		Int("renditions", len(jobs)).
		Str("backend", string(backend)).
		Bool("concurrent", concurrent).
		Msg("starting transcode")

	if concurrent {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.config.MaxParallel)

		for _, job := range jobs {
			job := job
			g.Go(func() error {
				return m.runJob(gctx, input, job)
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, job := range jobs {
			if err := m.runJob(ctx, input, job); err != nil {
				return nil, err
			}
		}
	}

	manifest := newManifest(jobs)
	if len(manifest.Entries) == 0 {
		return nil, &NoRenditionsProducedError{Failures: manifest.Failures}
	}

	masterPath := filepath.Join(input.OutputDir, MasterPlaylistName)
	if err := os.WriteFile(masterPath, []byte(manifest.Playlist()), 0644); err != nil {
		return nil, fmt.Errorf("unable to write master playlist: %w", err)
	}

	m.logger.Info().
		Int("renditions", len(manifest.Entries)).
		Bool("partial", manifest.Partial).
		Msg("transcode finished")

	return manifest, nil
}

// runJob only returns an error when the whole run must be aborted.
func (m *ManagerCtx) runJob(ctx context.Context, input Input, job *EncodeJob) error {
	for {
		job.State = StateEncoding

		output, err := m.encode(ctx, input, job)
		if err == nil {
			job.State = StateSucceeded
			job.Output = output
			return nil
		}

		if ctx.Err() != nil {
			job.State = StateFailed
			return ctx.Err()
		}

		var failure *encoder.BackendFailure
		if job.Backend == encoder.KindHardware && errors.As(err, &failure) {
			m.logger.Warn().Err(err).Str("label", job.Spec.Label).Msg("hardware encoder failed, retrying with software")
			metrics.IncEncodeFallbacks(job.Spec.Label)
			m.discard(input, job)

			job.Backend = encoder.KindSoftware
			job.State = StatePending
			continue
		}

		m.logger.Error().Err(err).Str("label", job.Spec.Label).Msg("rendition failed")
		m.discard(input, job)

		job.State = StateFailed
		job.Err = &RenditionFailed{
			Label:   job.Spec.Label,
			Backend: job.Backend,
			Err:     err,
		}
		return nil
	}
}

// discard removes partial output of a failed attempt, nothing of it may be published.
func (m *ManagerCtx) discard(input Input, job *EncodeJob) {
	segmentDir := filepath.Join(input.OutputDir, filepath.FromSlash(job.Spec.SegmentDir()))
	if err := os.RemoveAll(segmentDir); err != nil {
		m.logger.Warn().Err(err).Str("dir", segmentDir).Msg("unable to remove partial rendition")
	}
}

func (m *ManagerCtx) encode(ctx context.Context, input Input, job *EncodeJob) (*encoder.RenditionOutput, error) {
	backend := m.config.Hardware
	if job.Backend == encoder.KindSoftware {
		backend = m.config.Software

		if err := m.software.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer m.software.Release(1)
	}

	if backend == nil {
		return nil, fmt.Errorf("%s backend not configured", job.Backend)
	}

	var duration float64
	if input.Probe != nil {
		duration = input.Probe.Duration
	}

	start := time.Now()
	output, err := backend.Encode(ctx, encoder.Request{
		SourcePath: input.SourcePath,
		OutputDir:  input.OutputDir,
		Spec:       job.Spec,
		Duration:   duration,
		Observer:   m.config.Observer,
	})
	metrics.ObserveEncode(job.Spec.Label, string(job.Backend), time.Since(start), err)

	return output, err
}
