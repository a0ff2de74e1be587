package session

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
	"go.uber.org/zap"
)

type registered struct {
	session  *EditorSession
	lastSeen time.Time
}

// Registry keeps the open editor sessions of all users.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*registered
	idleTimeout time.Duration
	clock       func() time.Time
	logger      *zap.Logger
	onClose     func(*EditorSession)
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithClock replaces time.Now for idle accounting
func WithClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

// WithCloseHook registers fn to run for every session removed by Close or Sweep
func WithCloseHook(fn func(*EditorSession)) RegistryOption {
	return func(r *Registry) { r.onClose = fn }
}

// NewRegistry creates an empty registry. A non-positive idleTimeout disables
// idle eviction.
func NewRegistry(idleTimeout time.Duration, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		sessions:    make(map[string]*registered),
		idleTimeout: idleTimeout,
		clock:       time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a session. Session IDs must be unique.
func (r *Registry) Add(s *EditorSession) error {
	r.mu.Lock()
	if _, exists := r.sessions[s.ID()]; exists {
		r.mu.Unlock()
		return pkgerrors.NewConflictError("session already exists")
	}
	r.sessions[s.ID()] = &registered{session: s, lastSeen: r.clock()}
	r.mu.Unlock()

	r.logger.Info("Session opened", zap.String("sessionID", s.ID()), zap.String("userID", s.OwnerID()))
	return nil
}

// Get returns the session when it exists and belongs to ownerID
func (r *Registry) Get(ownerID, sessionID string) (*EditorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("session")
	}
	if entry.session.OwnerID() != ownerID {
		return nil, pkgerrors.NewForbiddenError("session belongs to another user")
	}
	entry.lastSeen = r.clock()
	return entry.session, nil
}

// Close removes a session owned by ownerID. Only the call that removes the
// entry runs the close hook.
func (r *Registry) Close(ownerID, sessionID string) error {
	r.mu.Lock()
	entry, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return pkgerrors.NewNotFoundError("session")
	}
	if entry.session.OwnerID() != ownerID {
		r.mu.Unlock()
		return pkgerrors.NewForbiddenError("session belongs to another user")
	}
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	r.closed(entry.session, "closed")
	return nil
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the idle timeout and returns
// how many were removed.
func (r *Registry) Sweep() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.clock().Add(-r.idleTimeout)

	var expired []*EditorSession
	r.mu.Lock()
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			expired = append(expired, entry.session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.closed(s, "idle")
	}
	return len(expired)
}

// Run sweeps every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("Swept idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (r *Registry) closed(s *EditorSession, reason string) {
	r.logger.Info("Session closed",
		zap.String("sessionID", s.ID()),
		zap.String("userID", s.OwnerID()),
		zap.String("reason", reason),
	)
	if r.onClose != nil {
		r.onClose(s)
	}
}
