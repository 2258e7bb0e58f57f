package ladder

import (
	"reflect"
	"testing"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name   string
		height int
		want   []string
	}{
		{
			name:   "4k source gets every tier",
			height: 2160,
			want:   []string{"1440p", "1080p", "720p", "480p", "360p"},
		},
		{
			name:   "exact 1080p",
			height: 1080,
			want:   []string{"1080p", "720p", "480p", "360p"},
		},
		{
			name:   "between tiers",
			height: 600,
			want:   []string{"480p", "360p"},
		},
		{
			name:   "smaller than every tier",
			height: 240,
			want:   []string{"360p"},
		},
		{
			name:   "unknown height",
			height: 0,
			want:   []string{"360p"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Labels(Select(tt.height)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Select(%d) = %v, want %v", tt.height, got, tt.want)
			}
		})
	}
}

func TestSelectProperties(t *testing.T) {
	floor := tiers[len(tiers)-1]

	for height := 0; height <= 4320; height += 7 {
		specs := Select(height)
		if len(specs) == 0 {
			t.Fatalf("Select(%d) returned empty ladder", height)
		}

		seen := map[string]bool{}
		for i, spec := range specs {
			if seen[spec.Label] {
				t.Errorf("Select(%d) has duplicate label %s", height, spec.Label)
			}
			seen[spec.Label] = true

			if i > 0 && specs[i-1].Height <= spec.Height {
				t.Errorf("Select(%d) is not strictly descending: %v", height, Labels(specs))
			}

			if spec.Height > height && spec.Label != floor.Label {
				t.Errorf("Select(%d) contains %s taller than source", height, spec.Label)
			}
		}
	}
}

func TestRenditionSpecPaths(t *testing.T) {
	spec, ok := Lookup("720p")
	if !ok {
		t.Fatal("720p tier not found")
	}

	if got := spec.PlaylistPath(); got != "hls_720p/playlist.m3u8" {
		t.Errorf("PlaylistPath() = %q", got)
	}
	if got := spec.Resolution(); got != "1280x720" {
		t.Errorf("Resolution() = %q", got)
	}
	if got := spec.Bandwidth(); got != (2996+128)*1000 {
		t.Errorf("Bandwidth() = %d", got)
	}

	if _, ok := Lookup("4320p"); ok {
		t.Error("Lookup of unknown label succeeded")
	}
}
