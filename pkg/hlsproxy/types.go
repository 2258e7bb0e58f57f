package hlsproxy

import (
	"net/http"
	"strings"
	"time"
)

type Config struct {
	StorageBaseURL string // public base URL of the object store bucket
	PathPrefix     string

	PlaylistTimeout time.Duration // whole upstream exchange for playlists, retries included
	SegmentTimeout  time.Duration // whole upstream exchange for segments, retries included

	RetryMax     *int          // nil means 2, 0 disables retries
	RetryWaitMin time.Duration // multiplied by attempt number

	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	IdleConnTimeout       time.Duration
	ResponseHeaderTimeout time.Duration

	ValidationCacheTTL time.Duration // 0 disables caching of variant checks
	CacheCleanupPeriod time.Duration // how often should be memory cache cleanup called

	RedisAddrs    []string // shared validation cache, memory when empty
	RedisPassword string
	RedisDB       int
}

func (c Config) withDefaultValues() Config {
	if c.PathPrefix == "" {
		c.PathPrefix = "/hls/"
	}
	if c.PlaylistTimeout == 0 {
		c.PlaylistTimeout = 10 * time.Second
	}
	if c.SegmentTimeout == 0 {
		c.SegmentTimeout = 60 * time.Second
	}
	if c.RetryMax == nil {
		retryMax := 2
		c.RetryMax = &retryMax
	} else if *c.RetryMax < 0 {
		retryMax := 0
		c.RetryMax = &retryMax
	}
	if c.RetryWaitMin == 0 {
		c.RetryWaitMin = 200 * time.Millisecond
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 64
	}
	if c.MaxConnsPerHost == 0 {
		c.MaxConnsPerHost = 256
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	if c.ResponseHeaderTimeout == 0 {
		c.ResponseHeaderTimeout = 10 * time.Second
	}
	if c.CacheCleanupPeriod == 0 {
		c.CacheCleanupPeriod = 30 * time.Second
	}
	// ensure it does not end with /
	c.StorageBaseURL = strings.TrimRight(c.StorageBaseURL, "/")
	// ensure it starts and ends with single /
	c.PathPrefix = "/" + strings.Trim(c.PathPrefix, "/") + "/"
	return c
}

type Manager interface {
	http.Handler

	Shutdown()
}
