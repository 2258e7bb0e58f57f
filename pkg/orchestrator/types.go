package orchestrator

import (
	"fmt"
	"strings"

	"github.com/m1k1o/go-mediapipe/pkg/encoder"
	"github.com/m1k1o/go-mediapipe/pkg/ladder"
	"github.com/m1k1o/go-mediapipe/pkg/probe"
)

const MasterPlaylistName = "master.m3u8"

type Config struct {
	Hardware encoder.Backend // nil when hardware encoding is not available
	Software encoder.Backend
	Observer encoder.Observer

	MaxParallel int // concurrent hardware sessions
}

func (c Config) withDefaultValues() Config {
	if c.MaxParallel == 0 {
		c.MaxParallel = 3
	}
	return c
}

type Input struct {
	SourcePath string
	OutputDir  string
	Probe      *probe.SourceProbe
	Ladder     []ladder.RenditionSpec
}

type JobState string

const (
	StatePending   JobState = "pending"
	StateEncoding  JobState = "encoding"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
)

type EncodeJob struct {
	Spec    ladder.RenditionSpec
	Backend encoder.Kind
	State   JobState

	Output *encoder.RenditionOutput
	Err    *RenditionFailed
}

// RenditionFailed is a permanent failure of a single rendition.
type RenditionFailed struct {
	Label   string
	Backend encoder.Kind
	Err     error
}

func (e *RenditionFailed) Error() string {
	return fmt.Sprintf("rendition %s failed on %s backend: %v", e.Label, e.Backend, e.Err)
}

func (e *RenditionFailed) Unwrap() error {
	return e.Err
}

type NoRenditionsProducedError struct {
	Failures []*RenditionFailed
}

func (e *NoRenditionsProducedError) Error() string {
	labels := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		labels = append(labels, failure.Label)
	}
	return fmt.Sprintf("no renditions produced, failed: %s", strings.Join(labels, ", "))
}
