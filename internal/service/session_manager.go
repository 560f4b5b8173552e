package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	"github.com/Nakib00/asps-dashboard-api/internal/reconcile"
)

// EditSession is one user's live draft-editing session for a module. The
// dashboard assumes a single editing session per user and module; loading a
// new scope reuses the same session and discards its prior drafts.
type EditSession struct {
	Controller *reconcile.Controller

	mu       sync.Mutex
	viewMode models.ViewMode
	lastSeen time.Time
}

// ViewMode returns the session's current view mode.
func (s *EditSession) ViewMode() models.ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewMode
}

// SetViewMode switches the session between its view states.
func (s *EditSession) SetViewMode(mode models.ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewMode = mode
}

func (s *EditSession) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *EditSession) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionManager keeps at most one EditSession per (user, module). Sessions
// hold only in-memory draft state; dropping one loses nothing durable.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*EditSession
	idleTTL  time.Duration
	logger   *zap.Logger
}

// NewSessionManager constructs the manager.
func NewSessionManager(idleTTL time.Duration, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		sessions: make(map[string]*EditSession),
		idleTTL:  idleTTL,
		logger:   logger,
	}
}

func sessionKey(userID string, module models.Module) string {
	return userID + "|" + string(module)
}

// Session returns the user's editing session for the module, creating it on
// first use.
func (m *SessionManager) Session(userID string, module models.Module) *EditSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(userID, module)
	sess, ok := m.sessions[key]
	if !ok {
		defaultMode := models.ViewModeMark
		if module == models.ModuleFees {
			defaultMode = models.ViewModeOverview
		}
		sess = &EditSession{
			Controller: reconcile.NewController(m.logger.Named(string(module))),
			viewMode:   defaultMode,
			lastSeen:   time.Now(),
		}
		m.sessions[key] = sess
	}
	sess.touch(time.Now())
	return sess
}

// Drop discards the user's session for the module along with all of its
// in-memory draft state.
func (m *SessionManager) Drop(userID string, module models.Module) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(userID, module))
}

// PruneIdle evicts sessions idle beyond the TTL. Meant to run periodically
// from a background goroutine.
func (m *SessionManager) PruneIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	pruned := 0
	for key, sess := range m.sessions {
		if m.idleTTL > 0 && sess.idleSince(now) > m.idleTTL {
			delete(m.sessions, key)
			pruned++
		}
	}
	if pruned > 0 {
		m.logger.Debug("idle_sessions_pruned", zap.Int("count", pruned))
	}
	return pruned
}

// Run prunes idle sessions until ctx is done.
func (m *SessionManager) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.PruneIdle()
		case <-stop:
			return
		}
	}
}
