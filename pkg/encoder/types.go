package encoder

import (
	"context"
	"fmt"
	"strings"

	"github.com/m1k1o/go-mediapipe/pkg/ladder"
)

type Kind string

const (
	KindHardware Kind = "hardware"
	KindSoftware Kind = "software"
)

type Config struct {
	FFmpegBinary    string
	SegmentDuration int // in seconds

	HardwareCodec  string
	HardwarePreset string
	SoftwareCodec  string
	Threads        int // software encoder threads, 0 means physical cores
}

func (c Config) withDefaultValues() Config {
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if c.SegmentDuration == 0 {
		c.SegmentDuration = 4
	}
	if c.HardwareCodec == "" {
		c.HardwareCodec = "h264_nvenc"
	}
	if c.HardwarePreset == "" {
		c.HardwarePreset = "p4"
	}
	if c.SoftwareCodec == "" {
		c.SoftwareCodec = "libx264"
	}
	if c.Threads == 0 {
		c.Threads = physicalCores()
	}
	return c
}

type Request struct {
	SourcePath string
	OutputDir  string
	Spec       ladder.RenditionSpec
	Duration   float64 // source duration in seconds, used for progress
	Observer   Observer
}

type RenditionOutput struct {
	Label        string
	Resolution   string
	PlaylistPath string // relative to output dir
	SegmentDir   string // relative to output dir
	Encoder      Kind
}

type Stats struct {
	FPS     float64
	Speed   float64 // realtime multiplier
	OutTime float64 // encoded seconds
}

// Observer receives advisory progress, it must not be relied upon for completion.
type Observer interface {
	OnProgress(label string, percent float64, stats Stats)
}

type ObserverFunc func(label string, percent float64, stats Stats)

func (f ObserverFunc) OnProgress(label string, percent float64, stats Stats) {
	f(label, percent, stats)
}

type Backend interface {
	Kind() Kind
	Encode(ctx context.Context, req Request) (*RenditionOutput, error)
}

// BackendFailure is returned when the encoder process fails.
type BackendFailure struct {
	Kind   Kind
	Label  string
	Stderr []string // last lines of encoder output
	Err    error
}

func (e *BackendFailure) Error() string {
	msg := fmt.Sprintf("%s encoder failed for %s: %v", e.Kind, e.Label, e.Err)
	if len(e.Stderr) > 0 {
		msg += ": " + strings.Join(e.Stderr, "; ")
	}
	return msg
}

func (e *BackendFailure) Unwrap() error {
	return e.Err
}
