// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	searchFeature "github.com/leapstack-labs/leapstats/internal/ui/features/search"
	"github.com/leapstack-labs/leapstats/internal/ui/notifier"
	"github.com/leapstack-labs/leapstats/internal/ui/resources"
	"github.com/leapstack-labs/leapstats/internal/ui/session"
)

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(
	router chi.Router,
	registry *session.Registry,
	notify *notifier.Notifier,
	logger *slog.Logger,
	isDev bool,
) error {
	// Hot reload endpoint for dev mode
	if isDev {
		setupReload(router)
	}

	router.Handle("/static/*", resources.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return searchFeature.SetupRoutes(router, registry, notify, logger, isDev)
}

// devReloader lets `templ generate --watch` style tooling refresh open tabs:
// GET /hotreload marks a rebuild, every /reload stream reloads its page once
// on connect and again on each rebuild.
type devReloader struct {
	rebuilt chan struct{}
	first   sync.Once
}

func setupReload(router chi.Router) {
	d := &devReloader{rebuilt: make(chan struct{}, 1)}
	router.Get("/reload", d.stream)
	router.Get("/hotreload", d.trigger)
}

func (d *devReloader) stream(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
	d.first.Do(reload)
	select {
	case <-d.rebuilt:
		reload()
	case <-r.Context().Done():
	}
}

func (d *devReloader) trigger(w http.ResponseWriter, _ *http.Request) {
	select {
	case d.rebuilt <- struct{}{}:
	default:
	}
	w.WriteHeader(http.StatusNoContent)
}
