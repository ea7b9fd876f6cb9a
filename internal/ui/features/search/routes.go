package search

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leapstats/internal/ui/notifier"
	"github.com/leapstack-labs/leapstats/internal/ui/session"
)

// SetupRoutes registers the search page, its update stream and its actions.
func SetupRoutes(
	router chi.Router,
	registry *session.Registry,
	notify *notifier.Notifier,
	logger *slog.Logger,
	isDev bool,
) error {
	handlers := NewHandlers(registry, notify, logger, isDev)

	router.Get("/", handlers.SearchPage)
	router.Get("/updates", handlers.Updates)

	router.Route("/actions", func(r chi.Router) {
		r.Post("/search", handlers.Search)
		r.Post("/page/next", handlers.NextPage)
		r.Post("/page/prev", handlers.PrevPage)
		r.Post("/page/jump", handlers.JumpPage)
		r.Post("/sort/{column}", handlers.Sort)
	})

	return nil
}
