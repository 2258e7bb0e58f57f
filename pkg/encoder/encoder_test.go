package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/m1k1o/go-mediapipe/pkg/ladder"
)

func fakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported")
	}

	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func spec720(t *testing.T) ladder.RenditionSpec {
	spec, ok := ladder.Lookup("720p")
	if !ok {
		t.Fatal("720p tier not found")
	}
	return spec
}

func TestArgs(t *testing.T) {
	spec := spec720(t)
	req := Request{SourcePath: "in.mp4", OutputDir: "/tmp/out", Spec: spec}

	hw := strings.Join(NewFFmpeg(KindHardware, Config{Threads: 2}).Args(req), " ")
	sw := strings.Join(NewFFmpeg(KindSoftware, Config{Threads: 2}).Args(req), " ")

	for _, want := range []string{"-c:v h264_nvenc", "-cq 22", "-maxrate 2996k", "-hls_time 4"} {
		if !strings.Contains(hw, want) {
			t.Errorf("hardware args %q missing %q", hw, want)
		}
	}
	for _, want := range []string{"-c:v libx264", "-preset fast", "-crf 22", "-threads 2", "-b:a 128k"} {
		if !strings.Contains(sw, want) {
			t.Errorf("software args %q missing %q", sw, want)
		}
	}

	if !strings.HasSuffix(sw, filepath.Join("/tmp/out", "hls_720p", "playlist.m3u8")) {
		t.Errorf("software args %q do not end with playlist path", sw)
	}
	if !strings.Contains(sw, filepath.Join("/tmp/out", "hls_720p", "segment_%03d.ts")) {
		t.Errorf("software args %q missing segment pattern", sw)
	}
}

func TestEncode(t *testing.T) {
	binary := fakeFFmpeg(t, `for last; do :; done
mkdir -p "$(dirname "$last")"
printf '#EXTM3U\n' > "$last"
printf 'fps=30.0\nout_time_us=5000000\nspeed=2.5x\nprogress=continue\n'
printf 'out_time_us=10000000\nprogress=end\n'
`)

	progress := make(chan float64, 16)
	observer := ObserverFunc(func(label string, percent float64, stats Stats) {
		if label != "720p" {
			t.Errorf("OnProgress() label = %q", label)
		}
		progress <- percent
	})

	outputDir := t.TempDir()
	out, err := NewFFmpeg(KindSoftware, Config{FFmpegBinary: binary}).Encode(context.Background(), Request{
		SourcePath: "in.mp4",
		OutputDir:  outputDir,
		Spec:       spec720(t),
		Duration:   10,
		Observer:   observer,
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := RenditionOutput{
		Label:        "720p",
		Resolution:   "1280x720",
		PlaylistPath: "hls_720p/playlist.m3u8",
		SegmentDir:   "hls_720p",
		Encoder:      KindSoftware,
	}
	if *out != want {
		t.Errorf("Encode() = %+v, want %+v", *out, want)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case percent := <-progress:
			if percent == 100 {
				return
			}
		case <-timeout:
			t.Fatal("final progress was not reported")
		}
	}
}

func TestEncodeFailure(t *testing.T) {
	binary := fakeFFmpeg(t, `echo "No NVENC capable devices found" >&2
exit 1
`)

	_, err := NewFFmpeg(KindHardware, Config{FFmpegBinary: binary}).Encode(context.Background(), Request{
		SourcePath: "in.mp4",
		OutputDir:  t.TempDir(),
		Spec:       spec720(t),
	})

	var failure *BackendFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Encode() error = %v, want BackendFailure", err)
	}
	if failure.Kind != KindHardware || failure.Label != "720p" {
		t.Errorf("BackendFailure = %+v", failure)
	}
	if len(failure.Stderr) != 1 || failure.Stderr[0] != "No NVENC capable devices found" {
		t.Errorf("BackendFailure.Stderr = %v", failure.Stderr)
	}
}

func TestEncodeCanceled(t *testing.T) {
	binary := fakeFFmpeg(t, "exec sleep 5\n")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewFFmpeg(KindHardware, Config{FFmpegBinary: binary}).Encode(ctx, Request{
		SourcePath: "in.mp4",
		OutputDir:  t.TempDir(),
		Spec:       spec720(t),
	})

	var failure *BackendFailure
	if errors.As(err, &failure) {
		t.Fatalf("Encode() error = %v, cancellation must not be a backend failure", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Encode() error = %v, want deadline exceeded", err)
	}
}

func TestHasEncoder(t *testing.T) {
	output := `Encoders:
 V..... = Video
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 V....D h264_nvenc           NVIDIA NVENC H.264 encoder (codec h264)
 A....D aac                  AAC (Advanced Audio Coding)
`
	if !hasEncoder(output, "h264_nvenc") {
		t.Error("h264_nvenc not detected")
	}
	if hasEncoder(output, "h264_qsv") {
		t.Error("h264_qsv detected")
	}
}

func TestProgressPercent(t *testing.T) {
	r := &progressReporter{duration: 8}

	if got := r.percent(2); got != 25 {
		t.Errorf("percent(2) = %v", got)
	}
	if got := r.percent(20); got != 100 {
		t.Errorf("percent(20) = %v", got)
	}

	r.duration = 0
	if got := r.percent(2); got != 0 {
		t.Errorf("percent without duration = %v", got)
	}
}
