package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/intent"
	"github.com/avvvet/sightline/internal/route"
)

// Session is the state of one conversation. Requests for a session are
// handled one at a time.
type Session struct {
	ID        string
	mu        sync.Mutex
	navigator *route.Navigator
	arbiter   *intent.Arbiter
	logger    *zap.Logger

	// guarded by Registry.mu
	lastUsed time.Time
}

// Registry owns the sessions of the process, keyed by session id
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	table    *route.Table
	policy   intent.Policy
	logger   *zap.Logger
	now      func() time.Time
}

func NewRegistry(table *route.Table, policy intent.Policy, logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		table:    table,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Registry) newSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:        id,
		navigator: route.NewNavigator(r.table),
		arbiter:   intent.NewArbiter(r.policy),
		logger:    r.logger.With(zap.String("session_id", id)),
	}
}

// Get returns the session for id, creating it on first use. An empty id
// gets a fresh one.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.lastUsed = r.now()
		return s
	}

	s := r.newSession(id)
	s.lastUsed = r.now()
	r.sessions[s.ID] = s
	r.logger.Debug("Session created", zap.String("session_id", s.ID))
	return s
}

// Lookup returns an existing session and marks it used
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		s.lastUsed = r.now()
	}
	return s, ok
}

// Transient returns a blank session that is not kept. Requests that cannot
// change state run against it when their id is unknown.
func (r *Registry) Transient(id string) *Session {
	return r.newSession(id)
}

// Remove stops and forgets a session. It reports whether one existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.navigator.Stop()
		s.arbiter.Clear()
	}
	return ok
}

// Sweep removes sessions unused for longer than maxIdle and returns their ids
func (r *Registry) Sweep(maxIdle time.Duration) []string {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(idle))
	for _, s := range idle {
		s.navigator.Stop()
		s.arbiter.Clear()
		ids = append(ids, s.ID)
	}
	return ids
}

// Janitor sweeps idle sessions until ctx is done. onEvict runs for every
// removed id.
func (r *Registry) Janitor(ctx context.Context, maxIdle time.Duration, onEvict func(id string)) {
	interval := maxIdle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids := r.Sweep(maxIdle)
			for _, id := range ids {
				if onEvict != nil {
					onEvict(id)
				}
			}
			if len(ids) > 0 {
				r.logger.Info("Idle sessions evicted", zap.Int("count", len(ids)))
			}
		}
	}
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops every session
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.navigator.Stop()
		s.arbiter.Clear()
	}
	r.logger.Info("Sessions closed", zap.Int("count", len(sessions)))
}
