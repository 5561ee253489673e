package session

import (
	"context"
	"sync"
	"time"

	"disaster-classifier/internal/logger"
	"disaster-classifier/internal/services"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Registry maps browser session IDs to their stores. Sessions idle for
// longer than the TTL are closed by Run.
type Registry struct {
	classifier services.Classifier
	opts       []Option
	ttl        time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(classifier services.Classifier, ttl time.Duration, opts ...Option) *Registry {
	return &Registry{
		classifier: classifier,
		opts:       opts,
		ttl:        ttl,
		now:        time.Now,
		sessions:   make(map[string]*entry),
	}
}

// NewID returns a fresh session ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id could have been issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the store for id, creating it when absent.
func (r *Registry) Get(id string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		e = &entry{store: NewStore(id, r.classifier, r.opts...)}
		r.sessions[id] = e
		logger.WithFields(logrus.Fields{"session": id}).Debug("Session created")
	}
	e.lastSeen = r.now()
	return e.store
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and forgets every session idle for longer than the TTL and
// returns how many were removed. Sessions with an open event stream are
// never idle.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	var expired []*Store
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) && e.store.Subscribers() == 0 {
			expired = append(expired, e.store)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, st := range expired {
		st.Close()
	}
	if len(expired) > 0 {
		logger.WithFields(logrus.Fields{"expired": len(expired)}).Info("Expired idle sessions")
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 2
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	stores := make([]*Store, 0, len(r.sessions))
	for id, e := range r.sessions {
		stores = append(stores, e.store)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, st := range stores {
		st.Close()
	}
}
