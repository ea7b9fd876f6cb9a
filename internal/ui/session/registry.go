// Package session binds browser sessions to result pagers.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/leapstats/internal/pager"
)

// CookieName is the name of the session cookie.
const CookieName = "leapstats"

const idKey = "id"

// Factory creates the pager for a new session id.
type Factory func(id string) *pager.Pager

// Registry maps session ids stored in a signed cookie to live pagers.
// Sessions idle longer than the TTL are evicted by Sweep, unless an update
// stream is still attached to them.
type Registry struct {
	store    sessions.Store
	newPager Factory
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	pager    *pager.Pager
	lastSeen time.Time
	streams  int
}

// NewRegistry creates a registry. A zero ttl disables eviction.
func NewRegistry(store sessions.Store, factory Factory, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		store:    store,
		newPager: factory,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
}

// Resolve returns the session id and pager for r, issuing a new session
// cookie on w when the request carries none (or an unreadable one). It must be
// called before anything is written to w.
func (reg *Registry) Resolve(w http.ResponseWriter, r *http.Request) (string, *pager.Pager, error) {
	// A cookie that fails to decode still yields a fresh session.
	sess, err := reg.store.Get(r, CookieName)
	if sess == nil {
		return "", nil, fmt.Errorf("load session: %w", err)
	}

	id, _ := sess.Values[idKey].(string)
	if _, perr := uuid.Parse(id); perr != nil {
		id = uuid.NewString()
		sess.Values[idKey] = id
		if err := sess.Save(r, w); err != nil {
			return "", nil, fmt.Errorf("save session: %w", err)
		}
		reg.logger.Debug("session created", "session", id)
	}

	return id, reg.pagerFor(id), nil
}

// Lookup returns the pager of an existing session without creating one.
func (reg *Registry) Lookup(id string) (*pager.Pager, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = reg.now()
	return e.pager, true
}

func (reg *Registry) pagerFor(id string) *pager.Pager {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	e, ok := reg.entries[id]
	if !ok {
		e = &entry{pager: reg.newPager(id)}
		reg.entries[id] = e
	}
	e.lastSeen = reg.now()
	return e.pager
}

// Attach marks an update stream as open for id; the session is not evicted
// while any stream is attached. The returned func detaches it.
func (reg *Registry) Attach(id string) (detach func()) {
	reg.mu.Lock()
	if e, ok := reg.entries[id]; ok {
		e.streams++
	}
	reg.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			reg.mu.Lock()
			if e, ok := reg.entries[id]; ok {
				e.streams--
				e.lastSeen = reg.now()
			}
			reg.mu.Unlock()
		})
	}
}

// Len returns the number of live sessions.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.entries)
}

// Sweep evicts idle sessions and closes their pagers. It returns the number
// of sessions evicted.
func (reg *Registry) Sweep() int {
	if reg.ttl <= 0 {
		return 0
	}
	cutoff := reg.now().Add(-reg.ttl)

	var stale []*pager.Pager
	reg.mu.Lock()
	for id, e := range reg.entries {
		if e.streams > 0 || e.lastSeen.After(cutoff) {
			continue
		}
		stale = append(stale, e.pager)
		delete(reg.entries, id)
	}
	reg.mu.Unlock()

	for _, p := range stale {
		p.Close()
	}
	if len(stale) > 0 {
		reg.logger.Debug("evicted idle sessions", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is cancelled, then closes every pager.
func (reg *Registry) Run(ctx context.Context) error {
	defer reg.Close()
	if reg.ttl <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(max(reg.ttl/4, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			reg.Sweep()
		}
	}
}

// Close closes and forgets every pager.
func (reg *Registry) Close() {
	reg.mu.Lock()
	entries := reg.entries
	reg.entries = make(map[string]*entry)
	reg.mu.Unlock()

	for _, e := range entries {
		e.pager.Close()
	}
}
