package hlsproxy

import (
	"strings"
	"testing"
)

func TestRewritePlaylist(t *testing.T) {
	tests := []struct {
		name  string
		input string
		dir   string
		want  string
	}{
		{
			name: "master: relative variants",
			input: `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=3124000,RESOLUTION=1280x720
hls_720p/playlist.m3u8
`,
			dir: ".",
			want: `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=3124000,RESOLUTION=1280x720
/hls/u1/v1/hls_720p/playlist.m3u8
`,
		},
		{
			name: "variant: segments and map",
			input: `#EXTM3U
#EXT-X-TARGETDURATION:4
#EXT-X-MAP:URI="init.mp4"
#EXTINF:4.000000,
segment_000.ts
#EXTINF:4.000000,
segment_001.ts
#EXT-X-ENDLIST`,
			dir: "hls_720p",
			want: `#EXTM3U
#EXT-X-TARGETDURATION:4
#EXT-X-MAP:URI="/hls/u1/v1/hls_720p/init.mp4"
#EXTINF:4.000000,
/hls/u1/v1/hls_720p/segment_000.ts
#EXTINF:4.000000,
/hls/u1/v1/hls_720p/segment_001.ts
#EXT-X-ENDLIST`,
		},
		{
			name: "absolute references untouched",
			input: `#EXTM3U
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aac",URI="https://cdn.example.com/audio.m3u8"
https://cdn.example.com/segment_000.ts
/already/rooted.ts
`,
			dir: "hls_720p",
			want: `#EXTM3U
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aac",URI="https://cdn.example.com/audio.m3u8"
https://cdn.example.com/segment_000.ts
/already/rooted.ts
`,
		},
		{
			name:  "parent reference resolved against playlist directory",
			input: "../hls_360p/playlist.m3u8\n",
			dir:   "hls_720p",
			want:  "/hls/u1/v1/hls_360p/playlist.m3u8\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewritePlaylist(tt.input, "/hls/u1/v1/", tt.dir); got != tt.want {
				t.Errorf("rewritePlaylist() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMasterVariants(t *testing.T) {
	lines := strings.Split(`#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=3124000,RESOLUTION=1280x720
hls_720p/playlist.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1626000,RESOLUTION=854x480
https://example.com/480p.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=952000,RESOLUTION=640x360
hls_360p/playlist.m3u8`, "\n")

	variants := masterVariants(lines)
	if len(variants) != 2 {
		t.Fatalf("masterVariants() = %+v, want 2 entries", variants)
	}
	if variants[0].uri != "hls_720p/playlist.m3u8" || variants[1].uri != "hls_360p/playlist.m3u8" {
		t.Errorf("masterVariants() = %+v", variants)
	}

	kept := dropVariants(lines, variants[:1])
	want := []string{
		"#EXTM3U",
		"#EXT-X-STREAM-INF:BANDWIDTH=1626000,RESOLUTION=854x480",
		"https://example.com/480p.m3u8",
		"#EXT-X-STREAM-INF:BANDWIDTH=952000,RESOLUTION=640x360",
		"hls_360p/playlist.m3u8",
	}
	if strings.Join(kept, "\n") != strings.Join(want, "\n") {
		t.Errorf("dropVariants() = %q", kept)
	}
}
