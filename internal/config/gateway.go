package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/m1k1o/go-mediapipe/pkg/hlsproxy"
)

type Gateway struct {
	StorageURL string

	PlaylistTimeout time.Duration
	SegmentTimeout  time.Duration
	RetryMax        int
	RetryWait       time.Duration

	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	ResponseHeaderTimeout time.Duration

	ValidationCacheTTL time.Duration

	RedisAddrs    []string
	RedisPassword string
	RedisDB       int
}

func (Gateway) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("storage-url", "", "public base URL of the object storage bucket")
	if err := viper.BindPFlag("storage-url", cmd.PersistentFlags().Lookup("storage-url")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("hls.playlist-timeout", 10*time.Second, "upstream timeout for playlists, retries included")
	if err := viper.BindPFlag("hls.playlist-timeout", cmd.PersistentFlags().Lookup("hls.playlist-timeout")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("hls.segment-timeout", 60*time.Second, "upstream timeout for segments, retries included")
	if err := viper.BindPFlag("hls.segment-timeout", cmd.PersistentFlags().Lookup("hls.segment-timeout")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("hls.retry-max", 2, "retries of transient upstream errors")
	if err := viper.BindPFlag("hls.retry-max", cmd.PersistentFlags().Lookup("hls.retry-max")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("hls.retry-wait", 200*time.Millisecond, "base wait between retries, multiplied by attempt")
	if err := viper.BindPFlag("hls.retry-wait", cmd.PersistentFlags().Lookup("hls.retry-wait")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("hls.max-idle-conns", 64, "idle upstream connections kept per host")
	if err := viper.BindPFlag("hls.max-idle-conns", cmd.PersistentFlags().Lookup("hls.max-idle-conns")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("hls.max-conns", 256, "upstream connections allowed per host")
	if err := viper.BindPFlag("hls.max-conns", cmd.PersistentFlags().Lookup("hls.max-conns")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("hls.header-timeout", 10*time.Second, "time to wait for upstream response headers")
	if err := viper.BindPFlag("hls.header-timeout", cmd.PersistentFlags().Lookup("hls.header-timeout")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("hls.validation-cache-ttl", 0, "remember variant checks of master playlists, 0 disables")
	if err := viper.BindPFlag("hls.validation-cache-ttl", cmd.PersistentFlags().Lookup("hls.validation-cache-ttl")); err != nil {
		return err
	}

	cmd.PersistentFlags().StringSlice("redis.addrs", []string{}, "redis addresses for a shared validation cache")
	if err := viper.BindPFlag("redis.addrs", cmd.PersistentFlags().Lookup("redis.addrs")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("redis.password", "", "redis password")
	if err := viper.BindPFlag("redis.password", cmd.PersistentFlags().Lookup("redis.password")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("redis.db", 0, "redis database")
	if err := viper.BindPFlag("redis.db", cmd.PersistentFlags().Lookup("redis.db")); err != nil {
		return err
	}

	return nil
}

func (g *Gateway) Set() {
	g.StorageURL = viper.GetString("storage-url")

	g.PlaylistTimeout = viper.GetDuration("hls.playlist-timeout")
	g.SegmentTimeout = viper.GetDuration("hls.segment-timeout")
	g.RetryMax = viper.GetInt("hls.retry-max")
	g.RetryWait = viper.GetDuration("hls.retry-wait")

	g.MaxIdleConnsPerHost = viper.GetInt("hls.max-idle-conns")
	g.MaxConnsPerHost = viper.GetInt("hls.max-conns")
	g.ResponseHeaderTimeout = viper.GetDuration("hls.header-timeout")

	g.ValidationCacheTTL = viper.GetDuration("hls.validation-cache-ttl")

	g.RedisAddrs = viper.GetStringSlice("redis.addrs")
	g.RedisPassword = viper.GetString("redis.password")
	g.RedisDB = viper.GetInt("redis.db")
}

func (g *Gateway) HlsProxy() hlsproxy.Config {
	retryMax := g.RetryMax

	return hlsproxy.Config{
		StorageBaseURL:        g.StorageURL,
		PlaylistTimeout:       g.PlaylistTimeout,
		SegmentTimeout:        g.SegmentTimeout,
		RetryMax:              &retryMax,
		RetryWaitMin:          g.RetryWait,
		MaxIdleConnsPerHost:   g.MaxIdleConnsPerHost,
		MaxConnsPerHost:       g.MaxConnsPerHost,
		ResponseHeaderTimeout: g.ResponseHeaderTimeout,
		ValidationCacheTTL:    g.ValidationCacheTTL,
		RedisAddrs:            g.RedisAddrs,
		RedisPassword:         g.RedisPassword,
		RedisDB:               g.RedisDB,
	}
}
