package draft

import (
	"sync"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

// Store holds the mutable id→status mapping for one editing session's scope.
// It is owned by a single view controller; the mutex only serialises the
// HTTP requests that reach the same session, there is no concurrent editor.
type Store struct {
	mu       sync.Mutex
	scopeKey string
	order    []string
	entries  map[string]*models.RosterEntry
	frozen   bool
}

// NewStore returns an empty store with no scope.
func NewStore() *Store {
	return &Store{entries: make(map[string]*models.RosterEntry)}
}

// Seed replaces all state for the given scope, discarding prior edits. It is
// the only operation allowed to change the scope key. Entries arriving with
// no status are defaulted per module: PRESENT for attendance, untouched for
// fees. Entries seeded with Final set stay read-only; the server already owns
// their state and they never enter a snapshot.
func (s *Store) Seed(scope models.Scope, entries []models.RosterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scopeKey = scope.Key()
	s.order = make([]string, 0, len(entries))
	s.entries = make(map[string]*models.RosterEntry, len(entries))
	s.frozen = false

	for _, entry := range entries {
		e := entry
		if scope.Module == models.ModuleAttendance && (e.Status == "" || e.Status == models.StatusUnset) {
			e.Status = models.StatusPresent
		}
		e.Reason = ""
		s.order = append(s.order, e.ID)
		s.entries[e.ID] = &e
	}
}

// ScopeKey returns the key of the currently seeded scope.
func (s *Store) ScopeKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scopeKey
}

// SetStatus applies a local edit. Setting the same status twice is a no-op.
// Editing an id outside the current scope, a finalized entry, or while a
// submission is in flight is an invariant violation.
func (s *Store) SetStatus(id string, status models.EntryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return appErrors.ErrSubmissionInFlight
	}
	entry, ok := s.entries[id]
	if !ok {
		return appErrors.Clone(appErrors.ErrUnknownEntity, "entity "+id+" not in current scope")
	}
	if entry.Final {
		return appErrors.Clone(appErrors.ErrConflict, "entry already finalized")
	}
	if entry.Status == status {
		return nil
	}
	entry.Status = status
	entry.Reason = ""
	return nil
}

// Snapshot produces an immutable batch of the editable entries in seed order
// without mutating the store. Finalized entries are excluded; they were
// already accepted by the server.
func (s *Store) Snapshot() models.DraftBatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := models.DraftBatch{ScopeKey: s.scopeKey}
	for _, id := range s.order {
		entry := s.entries[id]
		if entry == nil || entry.Final {
			continue
		}
		batch.Entries = append(batch.Entries, *entry)
	}
	return batch
}

// Entries returns a copy of all entries in seed order, finalized included,
// for rendering.
func (s *Store) Entries() []models.RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.RosterEntry, 0, len(s.order))
	for _, id := range s.order {
		if entry := s.entries[id]; entry != nil {
			out = append(out, *entry)
		}
	}
	return out
}

// Len reports the number of entries in the current scope.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Freeze blocks edits while a submission is reconciling.
func (s *Store) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
}

// Unfreeze re-enables edits.
func (s *Store) Unfreeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = false
}

// MarkFinal flags accepted ids as read-only after a partial outcome and
// clears any stale rejection reason on them.
func (s *Store) MarkFinal(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if entry, ok := s.entries[id]; ok {
			entry.Final = true
			entry.Reason = ""
		}
	}
}

// MarkRejected surfaces per-entry rejection reasons. Rejected entries keep
// their pre-submission status so the user can re-edit and resubmit.
func (s *Store) MarkRejected(reasons map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, reason := range reasons {
		if entry, ok := s.entries[id]; ok {
			entry.Reason = reason
		}
	}
}
