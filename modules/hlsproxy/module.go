package hlsproxy

import (
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/m1k1o/go-mediapipe/pkg/hlsproxy"
)

type ModuleCtx struct {
	logger     zerolog.Logger
	pathPrefix string

	manager   hlsproxy.Manager
	managerMu sync.RWMutex
}

func New(pathPrefix string, config *hlsproxy.Config) *ModuleCtx {
	module := &ModuleCtx{
		logger:     log.With().Str("module", "hlsproxy").Logger(),
		pathPrefix: pathPrefix,
	}

	module.manager = module.newManager(config)
	return module
}

func (m *ModuleCtx) newManager(config *hlsproxy.Config) hlsproxy.Manager {
	conf := *config
	conf.PathPrefix = m.pathPrefix
	return hlsproxy.New(&conf)
}

func (m *ModuleCtx) Shutdown() {
	m.managerMu.Lock()
	defer m.managerMu.Unlock()

	m.manager.Shutdown()
}

// ConfigReload replaces the gateway, requests in flight finish on the old one.
func (m *ModuleCtx) ConfigReload(config *hlsproxy.Config) {
	manager := m.newManager(config)

	m.managerMu.Lock()
	old := m.manager
	m.manager = manager
	m.managerMu.Unlock()

	old.Shutdown()
	m.logger.Info().Str("storage-url", config.StorageBaseURL).Msg("config reloaded")
}

func (m *ModuleCtx) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, m.pathPrefix) {
		http.NotFound(w, r)
		return
	}

	m.managerMu.RLock()
	manager := m.manager
	m.managerMu.RUnlock()

	manager.ServeHTTP(w, r)
}
