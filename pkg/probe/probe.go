package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type SourceProbe struct {
	Duration float64 // in seconds
	Width    int
	Height   int
	Codec    string
	Bitrate  int64 // container bitrate in bits
}

type UnreadableMediaError struct {
	Path   string
	Reason string
	Err    error
}

func (e *UnreadableMediaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable media %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("unreadable media %s: %s", e.Path, e.Reason)
}

func (e *UnreadableMediaError) Unwrap() error {
	return e.Err
}

// Probe extracts duration, resolution, codec and bitrate using ffprobe.
func Probe(ctx context.Context, ffprobeBinary string, inputFilePath string) (*SourceProbe, error) {
	args := []string{
		"-v", "error", // Hide debug information
		"-show_format",  // Show container information
		"-show_streams", // Show codec information
		"-of", "json",
		inputFilePath,
	}

	cmd := exec.CommandContext(ctx, ffprobeBinary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, &UnreadableMediaError{
			Path:   inputFilePath,
			Reason: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return parse(inputFilePath, stdout.Bytes())
}

func parse(inputFilePath string, data []byte) (*SourceProbe, error) {
	out := struct {
		Streams []struct {
			CodecName string `json:"codec_name"`
			CodecType string `json:"codec_type"`
			Duration  string `json:"duration"`
			BitRate   string `json:"bit_rate"`

			// For video streams.
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"streams"`
		Format struct {
			FormatName string `json:"format_name"`
			Duration   string `json:"duration"`
			BitRate    string `json:"bit_rate"`
		} `json:"format"`
	}{}

	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &UnreadableMediaError{Path: inputFilePath, Reason: "invalid ffprobe output", Err: err}
	}

	var result *SourceProbe
	var streamDuration string
	var streamBitRate string
	for _, stream := range out.Streams {
		if stream.CodecType != "video" || result != nil {
			continue
		}

		result = &SourceProbe{
			Width:  stream.Width,
			Height: stream.Height,
			Codec:  stream.CodecName,
		}
		streamDuration = stream.Duration
		streamBitRate = stream.BitRate
	}

	if result == nil {
		return nil, &UnreadableMediaError{Path: inputFilePath, Reason: "no video stream"}
	}

	var err error
	if result.Duration, err = parseFloat(out.Format.Duration, streamDuration); err != nil {
		return nil, &UnreadableMediaError{Path: inputFilePath, Reason: "unable to parse duration", Err: err}
	}

	bitRate, err := parseFloat(out.Format.BitRate, streamBitRate)
	if err != nil {
		return nil, &UnreadableMediaError{Path: inputFilePath, Reason: "unable to parse bitrate", Err: err}
	}
	result.Bitrate = int64(bitRate)

	return result, nil
}

// returns first non-empty value parsed as float
func parseFloat(values ...string) (float64, error) {
	for _, value := range values {
		if value == "" || value == "N/A" {
			continue
		}
		return strconv.ParseFloat(value, 64)
	}
	return 0, nil
}
