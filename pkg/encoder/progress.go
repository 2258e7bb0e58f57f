package encoder

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// reports are dropped when the observer is slower than the encoder
const progressBuffer = 16

type progressReporter struct {
	label    string
	duration float64
	updates  chan progressUpdate
}

type progressUpdate struct {
	percent float64
	stats   Stats
}

func newProgressReporter(label string, duration float64, observer Observer) *progressReporter {
	r := &progressReporter{
		label:    label,
		duration: duration,
		updates:  make(chan progressUpdate, progressBuffer),
	}

	go func() {
		for update := range r.updates {
			if observer != nil {
				observer.OnProgress(r.label, update.percent, update.stats)
			}
		}
	}()

	return r
}

// read parses ffmpeg -progress key=value blocks until EOF.
func (r *progressReporter) read(reader io.Reader) {
	stats := Stats{}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}

		switch key {
		case "fps":
			stats.FPS, _ = strconv.ParseFloat(value, 64)
		case "speed":
			stats.Speed, _ = strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(value), "x"), 64)
		case "out_time_us":
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				stats.OutTime = float64(us) / 1e6
			}
		case "progress":
			percent := r.percent(stats.OutTime)
			if value == "end" {
				percent = 100
			}
			r.emit(progressUpdate{percent: percent, stats: stats})
		}
	}
}

func (r *progressReporter) percent(outTime float64) float64 {
	if r.duration <= 0 {
		return 0
	}

	percent := outTime / r.duration * 100
	if percent > 100 {
		percent = 100
	}
	return percent
}

func (r *progressReporter) emit(update progressUpdate) {
	select {
	case r.updates <- update:
	default:
	}
}

func (r *progressReporter) close() {
	close(r.updates)
}
