package encoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/m1k1o/go-mediapipe/internal/utils"
)

// how many stderr lines are kept for failure reports
const stderrTailSize = 8

type FFmpeg struct {
	logger zerolog.Logger
	kind   Kind
	config Config
}

func NewFFmpeg(kind Kind, config Config) *FFmpeg {
	return &FFmpeg{
		logger: log.With().Str("module", "encoder").Str("backend", string(kind)).Logger(),
		kind:   kind,
		config: config.withDefaultValues(),
	}
}

func (b *FFmpeg) Kind() Kind {
	return b.kind
}

func (b *FFmpeg) Encode(ctx context.Context, req Request) (*RenditionOutput, error) {
	spec := req.Spec
	logger := b.logger.With().Str("label", spec.Label).Logger()

	segmentDir := filepath.Join(req.OutputDir, spec.SegmentDir())
	if err := os.MkdirAll(segmentDir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create segment dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.config.FFmpegBinary, b.Args(req)...)

	stderr := utils.LogTail(logger, zerolog.DebugLevel, stderrTailSize)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, &BackendFailure{Kind: b.kind, Label: spec.Label, Err: err}
	}

	logger.Info().Int("pid", cmd.Process.Pid).Msg("encoder started")

	reporter := newProgressReporter(spec.Label, req.Duration, req.Observer)
	reporter.read(stdout)
	reporter.close()

	if err := cmd.Wait(); err != nil {
		// cancellation is not a backend failure
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, &BackendFailure{
			Kind:   b.kind,
			Label:  spec.Label,
			Stderr: stderr.Tail(),
			Err:    err,
		}
	}

	playlistPath := filepath.Join(req.OutputDir, filepath.FromSlash(spec.PlaylistPath()))
	if _, err := os.Stat(playlistPath); err != nil {
		return nil, &BackendFailure{
			Kind:  b.kind,
			Label: spec.Label,
			Err:   fmt.Errorf("playlist not produced: %w", err),
		}
	}

	logger.Info().Msg("encoder finished")

	return &RenditionOutput{
		Label:        spec.Label,
		Resolution:   spec.Resolution(),
		PlaylistPath: spec.PlaylistPath(),
		SegmentDir:   spec.SegmentDir(),
		Encoder:      b.kind,
	}, nil
}

// Args returns ffmpeg arguments producing one HLS rendition.
func (b *FFmpeg) Args(req Request) []string {
	spec := req.Spec
	segmentDir := filepath.Join(req.OutputDir, spec.SegmentDir())

	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "warning",
		"-y",
	}

	// Input specs
	args = append(args, []string{
		"-i", req.SourcePath,
		"-map", "0:v:0",
		"-map", "0:a:0?", // Audio is optional
		"-sn", // No subtitles
	}...)

	// Video specs
	args = append(args, []string{
		"-vf", fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease:force_divisible_by=2", spec.Width, spec.Height),
	}...)

	if b.kind == KindHardware {
		args = append(args, []string{
			"-c:v", b.config.HardwareCodec,
			"-preset", b.config.HardwarePreset,
			"-rc", "vbr",
			"-cq", fmt.Sprintf("%d", spec.Quality),
		}...)
	} else {
		args = append(args, []string{
			"-c:v", b.config.SoftwareCodec,
			"-preset", spec.Preset,
			"-crf", fmt.Sprintf("%d", spec.Quality),
			"-sc_threshold", "0",
			"-threads", fmt.Sprintf("%d", b.config.Threads),
		}...)
	}

	args = append(args, []string{
		"-profile:v", "high",
		"-b:v", fmt.Sprintf("%dk", spec.VideoBitrate),
		"-maxrate", fmt.Sprintf("%dk", spec.MaxBitrate),
		"-bufsize", fmt.Sprintf("%dk", spec.BufferSize),
		"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", b.config.SegmentDuration),
	}...)

	// Audio specs
	args = append(args, []string{
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", spec.AudioBitrate),
		"-ac", "2",
	}...)

	// Segmenting specs
	args = append(args, []string{
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", b.config.SegmentDuration),
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_segment_filename", filepath.Join(segmentDir, "segment_%03d.ts"),
		"-progress", "pipe:1", // Output progress to stdout.
		"-nostats",
		filepath.Join(segmentDir, "playlist.m3u8"),
	}...)

	return args
}
