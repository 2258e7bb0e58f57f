package hlsproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrUpstreamTransient is returned once all retries of a flaky upstream are used up.
var ErrUpstreamTransient = errors.New("upstream temporarily unavailable")

// UpstreamStatusError is a final non-2xx answer of the object store.
type UpstreamStatusError struct {
	Key        string
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned %d for %s", e.StatusCode, e.Key)
}

// isTransient reports whether a transport error is worth another attempt.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	// the request budget is spent
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.HasSuffix(msg, ": eof") {
		return true
	}
	for _, s := range []string{"connection reset", "connection refused", "socket hang up", "broken pipe", "unexpected eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}
