package hlsproxy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/m1k1o/go-mediapipe/internal/metrics"
)

func newClient(config Config, logger zerolog.Logger) *retryablehttp.Client {
	transport := cleanhttp.DefaultPooledTransport()
	transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
	transport.MaxConnsPerHost = config.MaxConnsPerHost
	transport.IdleConnTimeout = config.IdleConnTimeout
	transport.ResponseHeaderTimeout = config.ResponseHeaderTimeout

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{Transport: transport}
	client.Logger = leveledLogger{logger}
	client.RetryMax = *config.RetryMax
	client.RetryWaitMin = config.RetryWaitMin
	client.RetryWaitMax = config.RetryWaitMin * time.Duration(client.RetryMax+1)
	client.CheckRetry = checkRetry
	client.Backoff = linearBackoff
	client.ErrorHandler = errorHandler
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			metrics.IncUpstreamRetries()
		}
	}
	return client
}

// checkRetry retries transport failures only, any HTTP response is final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	return isTransient(err), nil
}

func linearBackoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	wait := min * time.Duration(attemptNum+1)
	if max > 0 && wait > max {
		wait = max
	}
	return wait
}

func errorHandler(resp *http.Response, err error, numTries int) (*http.Response, error) {
	if resp != nil {
		resp.Body.Close()
	}
	if isTransient(err) {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrUpstreamTransient, numTries, err)
	}
	return nil, err
}

// leveledLogger passes retryablehttp logs to zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

// failed attempts are expected, they are retried
func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
