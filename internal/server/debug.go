package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsPath = "/metrics"
	debugPath   = "/debug"
)

// withDebug mounts gateway and encoder metrics next to pprof and expvar.
func withDebug(router chi.Router) {
	router.Handle(metricsPath, promhttp.Handler())

	// serves /debug/pprof/* and /debug/vars
	router.Mount(debugPath, middleware.Profiler())
}
