package encoder

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

// DetectHardware reports whether ffmpeg was built with the hardware encoder.
func DetectHardware(ctx context.Context, ffmpegBinary, codec string) bool {
	if codec == "" {
		codec = "h264_nvenc"
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary, "-hide_banner", "-encoders")
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return false
	}

	return hasEncoder(out.String(), codec)
}

func hasEncoder(output, codec string) bool {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == codec {
			return true
		}
	}
	return false
}

func physicalCores() int {
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
