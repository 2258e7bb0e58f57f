package serve

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-mediapipe/internal/server"
	"github.com/m1k1o/go-mediapipe/modules/hlsproxy"
)

const hlsPathPrefix = "/hls/"

func NewCommand() *Main {
	return &Main{
		Config: &Config{},
	}
}

type Main struct {
	Config *Config

	logger zerolog.Logger

	// config reloads arrive on the file watcher goroutine
	mu       sync.Mutex
	server   *server.ServerManagerCtx
	hlsProxy *hlsproxy.ModuleCtx
}

func (main *Main) Preflight() {
	main.logger = log.With().Str("service", "main").Logger()
}

func (main *Main) start() {
	main.mu.Lock()
	defer main.mu.Unlock()

	config := main.Config

	if config.Gateway.StorageURL == "" {
		main.logger.Fatal().Msg("storage-url is required")
	}

	main.server = server.New(&config.Server)

	gateway := config.Gateway.HlsProxy()
	main.hlsProxy = hlsproxy.New(hlsPathPrefix, &gateway)
	main.server.Handle(hlsPathPrefix, main.hlsProxy)
	main.logger.Info().
		Str("storage-url", config.Gateway.StorageURL).
		Dur("validation-cache-ttl", config.Gateway.ValidationCacheTTL).
		Msg("hls gateway registered")

	main.server.Start()
}

// ConfigReload applies reloaded gateway settings to the running server.
func (main *Main) ConfigReload() {
	main.mu.Lock()
	defer main.mu.Unlock()

	if main.hlsProxy == nil {
		return
	}

	main.Config.Gateway.Set()
	gateway := main.Config.Gateway.HlsProxy()
	main.hlsProxy.ConfigReload(&gateway)
}

func (main *Main) shutdown() {
	main.mu.Lock()
	defer main.mu.Unlock()

	err := main.server.Shutdown()
	main.logger.Err(err).Msg("http manager shutdown")

	if main.hlsProxy != nil {
		main.hlsProxy.Shutdown()
		main.logger.Info().Msg("hlsProxy shutdown")
	}
}

func (main *Main) Run(cmd *cobra.Command, args []string) {
	main.logger.Info().Msg("starting main server")
	main.start()
	main.logger.Info().Msg("main ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit

	main.logger.Warn().Msgf("received %s, attempting graceful shutdown", sig)
	main.shutdown()
	main.logger.Info().Msg("shutdown complete")
}
