package ladder

import (
	"fmt"
	"sort"
)

type RenditionSpec struct {
	Label  string
	Width  int
	Height int

	VideoBitrate int // in kilobits
	MaxBitrate   int // in kilobits
	BufferSize   int // in kilobits
	AudioBitrate int // in kilobits

	Quality int    // crf for software, cq for hardware
	Preset  string // software encoder speed preset
}

// Resolution returns declared resolution as WxH.
func (s RenditionSpec) Resolution() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Bandwidth returns declared peak bitrate in bits per second.
func (s RenditionSpec) Bandwidth() int {
	return (s.MaxBitrate + s.AudioBitrate) * 1000
}

// PlaylistPath is relative to the video key prefix.
func (s RenditionSpec) PlaylistPath() string {
	return s.SegmentDir() + "/playlist.m3u8"
}

func (s RenditionSpec) SegmentDir() string {
	return "hls_" + s.Label
}

// standard tiers, ordered by descending height
var tiers = []RenditionSpec{
	{Label: "1440p", Width: 2560, Height: 1440, VideoBitrate: 8000, MaxBitrate: 8560, BufferSize: 12000, AudioBitrate: 192, Quality: 20, Preset: "medium"},
	{Label: "1080p", Width: 1920, Height: 1080, VideoBitrate: 5000, MaxBitrate: 5350, BufferSize: 7500, AudioBitrate: 192, Quality: 21, Preset: "medium"},
	{Label: "720p", Width: 1280, Height: 720, VideoBitrate: 2800, MaxBitrate: 2996, BufferSize: 4200, AudioBitrate: 128, Quality: 22, Preset: "fast"},
	{Label: "480p", Width: 854, Height: 480, VideoBitrate: 1400, MaxBitrate: 1498, BufferSize: 2100, AudioBitrate: 128, Quality: 23, Preset: "fast"},
	{Label: "360p", Width: 640, Height: 360, VideoBitrate: 800, MaxBitrate: 856, BufferSize: 1200, AudioBitrate: 96, Quality: 23, Preset: "veryfast"},
}

// Select returns every tier not taller than the source, tallest first.
// The lowest tier is always returned for sources smaller than any tier.
func Select(sourceHeight int) []RenditionSpec {
	selected := []RenditionSpec{}
	for _, tier := range tiers {
		if tier.Height <= sourceHeight {
			selected = append(selected, tier)
		}
	}

	if len(selected) == 0 {
		selected = append(selected, tiers[len(tiers)-1])
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Height > selected[j].Height
	})

	return selected
}

func Lookup(label string) (RenditionSpec, bool) {
	for _, tier := range tiers {
		if tier.Label == label {
			return tier, true
		}
	}
	return RenditionSpec{}, false
}

func Labels(specs []RenditionSpec) []string {
	labels := make([]string, 0, len(specs))
	for _, spec := range specs {
		labels = append(labels, spec.Label)
	}
	return labels
}
