package utils

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogWriterCtx forwards process output to a logger, line by line,
// optionally remembering the last lines for error reporting.
type LogWriterCtx struct {
	logger zerolog.Logger
	level  zerolog.Level

	mu   sync.Mutex
	tail []string
	size int
}

func LogWriter(l zerolog.Logger) *LogWriterCtx {
	return &LogWriterCtx{
		logger: l,
		level:  zerolog.WarnLevel,
	}
}

func LogTail(l zerolog.Logger, level zerolog.Level, size int) *LogWriterCtx {
	return &LogWriterCtx{
		logger: l,
		level:  level,
		size:   size,
	}
}

func (l *LogWriterCtx) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		l.logger.WithLevel(l.level).Msg(line)

		if l.size > 0 {
			l.mu.Lock()
			l.tail = append(l.tail, line)
			if len(l.tail) > l.size {
				l.tail = l.tail[len(l.tail)-l.size:]
			}
			l.mu.Unlock()
		}
	}

	return len(p), nil
}

func (l *LogWriterCtx) Tail() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.tail...)
}
