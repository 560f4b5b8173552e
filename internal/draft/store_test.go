package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

func attendanceScope(date string) models.Scope {
	return models.Scope{Module: models.ModuleAttendance, Date: date, ClassID: "7A"}
}

func TestStoreSeedDefaultsAttendanceToPresent(t *testing.T) {
	s := NewStore()
	s.Seed(attendanceScope("2026-03-02"), []models.RosterEntry{
		{ID: "s1"},
		{ID: "s2", Status: models.StatusUnset},
		{ID: "s3", Status: models.StatusAbsent},
	})

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, models.StatusPresent, entries[0].Status)
	assert.Equal(t, models.StatusPresent, entries[1].Status)
	assert.Equal(t, models.StatusAbsent, entries[2].Status)
	assert.Equal(t, attendanceScope("2026-03-02").Key(), s.ScopeKey())
}

func TestStoreSeedLeavesFeeStatusesAlone(t *testing.T) {
	s := NewStore()
	s.Seed(models.Scope{Module: models.ModuleFees}, []models.RosterEntry{
		{ID: "inv-1", Status: models.StatusPending},
		{ID: "inv-2", Status: models.StatusPaid},
	})

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, models.StatusPending, entries[0].Status)
	assert.Equal(t, models.StatusPaid, entries[1].Status)
}

func TestStoreSeedHonorsFinalEntries(t *testing.T) {
	s := NewStore()
	s.Seed(models.Scope{Module: models.ModuleFees}, []models.RosterEntry{
		{ID: "inv-1", Status: models.StatusPending},
		{ID: "inv-2", Status: models.StatusPaid, Final: true},
	})

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Final)
	assert.True(t, entries[1].Final)

	// Finalized-at-seed entries are not editable and never enter a snapshot.
	err := s.SetStatus("inv-2", models.StatusPending)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	batch := s.Snapshot()
	require.Len(t, batch.Entries, 1)
	assert.Equal(t, "inv-1", batch.Entries[0].ID)
}

func TestStoreSetStatusDoesNotChangeScope(t *testing.T) {
	s := NewStore()
	scope := attendanceScope("2026-03-02")
	s.Seed(scope, []models.RosterEntry{{ID: "s1"}, {ID: "s2"}})

	require.NoError(t, s.SetStatus("s1", models.StatusLate))
	require.NoError(t, s.SetStatus("s2", models.StatusAbsent))

	assert.Equal(t, scope.Key(), s.ScopeKey())
	assert.Equal(t, 2, s.Len())
}

func TestStoreSetStatusIdempotent(t *testing.T) {
	s := NewStore()
	s.Seed(attendanceScope("2026-03-02"), []models.RosterEntry{{ID: "s1"}})

	require.NoError(t, s.SetStatus("s1", models.StatusAbsent))
	before := s.Entries()
	require.NoError(t, s.SetStatus("s1", models.StatusAbsent))
	assert.Equal(t, before, s.Entries())
}

func TestStoreSetStatusUnknownID(t *testing.T) {
	s := NewStore()
	s.Seed(attendanceScope("2026-03-02"), []models.RosterEntry{{ID: "s1"}})

	err := s.SetStatus("ghost", models.StatusAbsent)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnknownEntity))
}

func TestStoreSetStatusWhileFrozen(t *testing.T) {
	s := NewStore()
	s.Seed(attendanceScope("2026-03-02"), []models.RosterEntry{{ID: "s1"}})

	s.Freeze()
	err := s.SetStatus("s1", models.StatusAbsent)
	assert.True(t, appErrors.Is(err, appErrors.ErrSubmissionInFlight))

	s.Unfreeze()
	assert.NoError(t, s.SetStatus("s1", models.StatusAbsent))
}

func TestStoreSetStatusOnFinalEntry(t *testing.T) {
	s := NewStore()
	s.Seed(attendanceScope("2026-03-02"), []models.RosterEntry{{ID: "s1"}, {ID: "s2"}})

	s.MarkFinal([]string{"s1"})
	err := s.SetStatus("s1", models.StatusLate)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	assert.NoError(t, s.SetStatus("s2", models.StatusLate))
}

func TestStoreSnapshotExcludesFinalEntries(t *testing.T) {
	s := NewStore()
	s.Seed(attendanceScope("2026-03-02"), []models.RosterEntry{
		{ID: "s1"}, {ID: "s2"}, {ID: "s3"},
	})
	s.MarkFinal([]string{"s2"})

	batch := s.Snapshot()
	assert.Equal(t, attendanceScope("2026-03-02").Key(), batch.ScopeKey)
	require.Len(t, batch.Entries, 2)
	assert.Equal(t, "s1", batch.Entries[0].ID)
	assert.Equal(t, "s3", batch.Entries[1].ID)
}

func TestStoreSnapshotIsImmutable(t *testing.T) {
	s := NewStore()
	s.Seed(attendanceScope("2026-03-02"), []models.RosterEntry{{ID: "s1"}})

	batch := s.Snapshot()
	batch.Entries[0].Status = models.StatusLate

	assert.Equal(t, models.StatusPresent, s.Entries()[0].Status)
}

func TestStoreMarkRejectedKeepsStatus(t *testing.T) {
	s := NewStore()
	s.Seed(attendanceScope("2026-03-02"), []models.RosterEntry{{ID: "s1"}})
	require.NoError(t, s.SetStatus("s1", models.StatusAbsent))

	s.MarkRejected(map[string]string{"s1": "DUPLICATE_RECORD"})

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusAbsent, entries[0].Status)
	assert.Equal(t, "DUPLICATE_RECORD", entries[0].Reason)
	assert.False(t, entries[0].Final)
}

func TestStoreReseedDiscardsEdits(t *testing.T) {
	s := NewStore()
	s.Seed(attendanceScope("2026-03-02"), []models.RosterEntry{{ID: "s1"}})
	require.NoError(t, s.SetStatus("s1", models.StatusAbsent))

	next := attendanceScope("2026-03-03")
	s.Seed(next, []models.RosterEntry{{ID: "s1"}, {ID: "s9"}})

	assert.Equal(t, next.Key(), s.ScopeKey())
	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, models.StatusPresent, entries[0].Status)
}
