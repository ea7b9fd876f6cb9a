package search

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/pager"
	"github.com/leapstack-labs/leapstats/internal/ui/features/common"
	"github.com/leapstack-labs/leapstats/internal/ui/features/search/components"
	"github.com/leapstack-labs/leapstats/internal/ui/features/search/pages"
	"github.com/leapstack-labs/leapstats/internal/ui/notifier"
	"github.com/leapstack-labs/leapstats/internal/ui/session"
)

// Handlers provides HTTP handlers for the search feature.
type Handlers struct {
	registry *session.Registry
	notifier *notifier.Notifier
	logger   *slog.Logger
	isDev    bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *session.Registry, notify *notifier.Notifier, logger *slog.Logger, isDev bool) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		registry: registry,
		notifier: notify,
		logger:   logger,
		isDev:    isDev,
	}
}

// SearchPage renders the full page with the session's current results.
func (h *Handlers) SearchPage(w http.ResponseWriter, r *http.Request) {
	_, p, err := h.registry.Resolve(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	meta := common.PageMeta{Title: "Box Scores", IsDev: h.isDev}
	if err := pages.SearchPage(meta, p.View()).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint of a session. It sends nothing up
// front, the page is already rendered, and re-patches the results whenever
// the session's pager changes, which is how background read-aheads appear.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	id, p, err := h.registry.Resolve(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	detach := h.registry.Attach(id)
	defer detach()

	updates := h.notifier.Subscribe(id)
	defer h.notifier.Unsubscribe(id, updates)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.PatchElementTempl(components.Results(p.View())); err != nil {
				_ = sse.ConsoleError(err)
				// Keep the stream, the next change may get through
			}
		}
	}
}

// Search submits the form's query and answers with the new results. A
// failed submission keeps the previous results and shows the error.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	_, p, ok := h.resolve(w, r)
	if !ok {
		return
	}

	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.patchError(w, r, p, "Failed to read signals: "+err.Error())
		return
	}

	q, err := buildQuery(signals)
	if err != nil {
		h.patchError(w, r, p, err.Error())
		return
	}

	// Backend failures are recorded on the pager and rendered with the results.
	err = p.Submit(r.Context(), q)
	switch {
	case errors.Is(err, pager.ErrNoQuery):
		h.patchError(w, r, p, "Query cannot be empty")
		return
	case errors.Is(err, pager.ErrBusy):
		h.logger.Debug("search ignored while loading", "query", q.String())
	}

	h.patch(w, r, p)
}

// NextPage advances one client page.
func (h *Handlers) NextPage(w http.ResponseWriter, r *http.Request) {
	if _, p, ok := h.resolve(w, r); ok {
		p.AdvancePage()
		h.patch(w, r, p)
	}
}

// PrevPage goes back one client page.
func (h *Handlers) PrevPage(w http.ResponseWriter, r *http.Request) {
	if _, p, ok := h.resolve(w, r); ok {
		p.RetreatPage()
		h.patch(w, r, p)
	}
}

// JumpPage moves to the page typed in the jump box. Invalid input is ignored.
func (h *Handlers) JumpPage(w http.ResponseWriter, r *http.Request) {
	_, p, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.patchError(w, r, p, "Failed to read signals: "+err.Error())
		return
	}
	p.JumpToPageInput(signals.Jump)

	sse := datastar.NewSSE(w, r)
	if err := sse.MarshalAndPatchSignals(map[string]any{"jump": ""}); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if err := sse.PatchElementTempl(components.Results(p.View())); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// Sort cycles the sort on the column in the URL.
func (h *Handlers) Sort(w http.ResponseWriter, r *http.Request) {
	_, p, ok := h.resolve(w, r)
	if !ok {
		return
	}
	col, err := url.PathUnescape(chi.URLParam(r, "column"))
	if err != nil || col == "" {
		h.patchError(w, r, p, "invalid sort column")
		return
	}
	p.SortBy(col)
	h.patch(w, r, p)
}

// buildQuery turns form signals into a backend query. Filter mode parses the
// text as key=value pairs.
func buildQuery(s Signals) (api.Query, error) {
	mode, err := api.ParseMode(s.Mode)
	if err != nil {
		return api.Query{}, err
	}
	if mode != api.ModeFilter {
		return api.Query{Mode: mode, Text: s.Query}, nil
	}
	params, err := api.ParseParamString(s.Query)
	if err != nil {
		return api.Query{}, err
	}
	return api.Query{Mode: mode, Params: params}, nil
}

func (h *Handlers) resolve(w http.ResponseWriter, r *http.Request) (string, *pager.Pager, bool) {
	id, p, err := h.registry.Resolve(w, r)
	if err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(err)
		return "", nil, false
	}
	return id, p, true
}

func (h *Handlers) patch(w http.ResponseWriter, r *http.Request, p *pager.Pager) {
	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElementTempl(components.Results(p.View())); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// patchError renders the current results with msg in place of the pager's
// own error, without touching pager state.
func (h *Handlers) patchError(w http.ResponseWriter, r *http.Request, p *pager.Pager, msg string) {
	v := p.View()
	v.Error = msg
	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElementTempl(components.Results(v)); err != nil {
		_ = sse.ConsoleError(err)
	}
}
