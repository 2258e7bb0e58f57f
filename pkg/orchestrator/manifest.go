package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/m1k1o/go-mediapipe/pkg/encoder"
	"github.com/m1k1o/go-mediapipe/pkg/ladder"
)

type Entry struct {
	Spec      ladder.RenditionSpec
	Output    encoder.RenditionOutput
	Bandwidth int // declared peak, in bits
}

type MasterManifest struct {
	Entries  []Entry
	Partial  bool
	Failures []*RenditionFailed
}

func newManifest(jobs []*EncodeJob) *MasterManifest {
	manifest := &MasterManifest{}

	for _, job := range jobs {
		if job.State == StateSucceeded && job.Output != nil {
			manifest.Entries = append(manifest.Entries, Entry{
				Spec:      job.Spec,
				Output:    *job.Output,
				Bandwidth: job.Spec.Bandwidth(),
			})
			continue
		}

		if job.Err != nil {
			manifest.Failures = append(manifest.Failures, job.Err)
		}
	}

	manifest.sort()
	manifest.Partial = len(manifest.Failures) > 0
	return manifest
}

// by descending resolution
func (m *MasterManifest) sort() {
	sort.SliceStable(m.Entries, func(i, j int) bool {
		a, b := m.Entries[i], m.Entries[j]
		if a.Spec.Height != b.Spec.Height {
			return a.Spec.Height > b.Spec.Height
		}
		if a.Bandwidth != b.Bandwidth {
			return a.Bandwidth > b.Bandwidth
		}
		return a.Output.Label < b.Output.Label
	})
}

func (m *MasterManifest) Outputs() []encoder.RenditionOutput {
	outputs := make([]encoder.RenditionOutput, 0, len(m.Entries))
	for _, entry := range m.Entries {
		outputs = append(outputs, entry.Output)
	}
	return outputs
}

func (m *MasterManifest) Playlist() string {
	m.sort()

	// playlist prefix
	playlist := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
	}

	// playlist variants
	for _, entry := range m.Entries {
		playlist = append(playlist,
			fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s", entry.Bandwidth, entry.Output.Resolution),
			entry.Output.PlaylistPath,
		)
	}

	// join with newlines
	return strings.Join(playlist, "\n") + "\n"
}
