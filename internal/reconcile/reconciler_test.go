package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

func testScope(date string) models.Scope {
	return models.Scope{Module: models.ModuleAttendance, Date: date, ClassID: "7A"}
}

func staticFetch(entries ...models.RosterEntry) FetchFunc {
	return func(ctx context.Context, scope models.Scope) ([]models.RosterEntry, error) {
		return entries, nil
	}
}

func acceptAll() SubmitFunc {
	return func(ctx context.Context, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error) {
		ids := make([]string, 0, len(batch.Entries))
		for _, e := range batch.Entries {
			ids = append(ids, e.ID)
		}
		return &models.SubmissionResult{AcceptedIDs: ids}, nil
	}
}

func TestControllerLoadTransitions(t *testing.T) {
	c := NewController(nil)
	assert.Equal(t, StateIdle, c.State())

	entries, err := c.Load(context.Background(), testScope("2026-03-02"),
		staticFetch(models.RosterEntry{ID: "s1"}, models.RosterEntry{ID: "s2"}))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, testScope("2026-03-02"), c.Scope())
}

func TestControllerLoadFailureReturnsToIdle(t *testing.T) {
	c := NewController(nil)
	_, err := c.Load(context.Background(), testScope("2026-03-02"),
		func(ctx context.Context, scope models.Scope) ([]models.RosterEntry, error) {
			return nil, appErrors.ErrNetwork
		})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNetwork))
	assert.Equal(t, StateIdle, c.State())
}

func TestControllerEditBeforeLoadRejected(t *testing.T) {
	c := NewController(nil)
	err := c.SetStatus("s1", models.StatusAbsent)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestControllerSubmitSuccessFinalizesAll(t *testing.T) {
	c := NewController(nil)
	_, err := c.Load(context.Background(), testScope("2026-03-02"),
		staticFetch(models.RosterEntry{ID: "s1"}, models.RosterEntry{ID: "s2"}))
	require.NoError(t, err)
	require.NoError(t, c.SetStatus("s1", models.StatusAbsent))

	result, err := c.Submit(context.Background(), acceptAll())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.Equal(t, models.OutcomeSuccess, c.LastOutcome())
	assert.Equal(t, StateReady, c.State())

	for _, e := range c.Entries() {
		assert.True(t, e.Final)
	}
}

func TestControllerSubmitPartialRetainsRejected(t *testing.T) {
	c := NewController(nil)
	_, err := c.Load(context.Background(), testScope("2026-03-02"),
		staticFetch(models.RosterEntry{ID: "s1"}, models.RosterEntry{ID: "s2"}))
	require.NoError(t, err)
	require.NoError(t, c.SetStatus("s2", models.StatusLate))

	result, err := c.Submit(context.Background(),
		func(ctx context.Context, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error) {
			return &models.SubmissionResult{
				AcceptedIDs: []string{"s1"},
				RejectedIDs: map[string]string{"s2": "LOCKED_PERIOD"},
			}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePartial, result.Outcome)

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Final)
	assert.False(t, entries[1].Final)
	assert.Equal(t, models.StatusLate, entries[1].Status)
	assert.Equal(t, "LOCKED_PERIOD", entries[1].Reason)

	// Only the retained entry goes out on the next submission.
	second, err := c.Submit(context.Background(),
		func(ctx context.Context, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error) {
			require.Len(t, batch.Entries, 1)
			assert.Equal(t, "s2", batch.Entries[0].ID)
			return &models.SubmissionResult{AcceptedIDs: []string{"s2"}}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, second.Outcome)
}

func TestControllerSubmitFailurePreservesBatch(t *testing.T) {
	c := NewController(nil)
	_, err := c.Load(context.Background(), testScope("2026-03-02"),
		staticFetch(models.RosterEntry{ID: "s1"}, models.RosterEntry{ID: "s2"}))
	require.NoError(t, err)
	require.NoError(t, c.SetStatus("s1", models.StatusAbsent))

	_, err = c.Submit(context.Background(),
		func(ctx context.Context, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error) {
			return nil, appErrors.ErrNetwork
		})
	require.Error(t, err)
	assert.Equal(t, models.OutcomeFailure, c.LastOutcome())
	assert.Equal(t, StateReady, c.State())

	// Edits survive the failed attempt and can be resubmitted as-is.
	batch := (func() models.DraftBatch {
		var got models.DraftBatch
		_, err := c.Submit(context.Background(),
			func(ctx context.Context, scope models.Scope, b models.DraftBatch) (*models.SubmissionResult, error) {
				got = b
				return &models.SubmissionResult{AcceptedIDs: []string{"s1", "s2"}}, nil
			})
		require.NoError(t, err)
		return got
	})()
	require.Len(t, batch.Entries, 2)
	assert.Equal(t, models.StatusAbsent, batch.Entries[0].Status)
}

func TestControllerSubmitNothingToSubmit(t *testing.T) {
	c := NewController(nil)
	_, err := c.Load(context.Background(), testScope("2026-03-02"), staticFetch())
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), acceptAll())
	assert.ErrorIs(t, err, ErrNothingToSubmit)
}

func TestControllerConcurrentSubmitSingleFlight(t *testing.T) {
	c := NewController(nil)
	_, err := c.Load(context.Background(), testScope("2026-03-02"),
		staticFetch(models.RosterEntry{ID: "s1"}))
	require.NoError(t, err)

	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once
	slowSubmit := func(ctx context.Context, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error) {
		atomic.AddInt32(&calls, 1)
		startedOnce.Do(func() { close(started) })
		<-release
		return &models.SubmissionResult{AcceptedIDs: []string{"s1"}}, nil
	}

	var wg sync.WaitGroup
	results := make([]*models.SubmissionResult, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.Submit(context.Background(), slowSubmit)
	}()

	<-started
	assert.Equal(t, StateSubmitting, c.State())

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = c.Submit(context.Background(), slowSubmit)
	}()

	// Local edits are rejected while the submission is in flight.
	assert.True(t, appErrors.Is(c.SetStatus("s1", models.StatusLate), appErrors.ErrSubmissionInFlight))

	// Give the second Submit time to park on the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, StateReady, c.State())
}

func TestControllerStaleFetchDiscarded(t *testing.T) {
	c := NewController(nil)

	release := make(chan struct{})
	started := make(chan struct{})
	slowFetch := func(ctx context.Context, scope models.Scope) ([]models.RosterEntry, error) {
		close(started)
		<-release
		return []models.RosterEntry{{ID: "old"}}, nil
	}

	var wg sync.WaitGroup
	var staleErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleErr = c.Load(context.Background(), testScope("2026-03-02"), slowFetch)
	}()

	<-started
	_, err := c.Load(context.Background(), testScope("2026-03-03"),
		staticFetch(models.RosterEntry{ID: "new"}))
	require.NoError(t, err)

	close(release)
	wg.Wait()

	assert.ErrorIs(t, staleErr, ErrSuperseded)
	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].ID)
	assert.Equal(t, testScope("2026-03-03"), c.Scope())
}

func TestControllerStaleSubmitDiscarded(t *testing.T) {
	c := NewController(nil)
	_, err := c.Load(context.Background(), testScope("2026-03-02"),
		staticFetch(models.RosterEntry{ID: "s1"}))
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	var submitErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, submitErr = c.Submit(context.Background(),
			func(ctx context.Context, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error) {
				close(started)
				<-release
				return &models.SubmissionResult{AcceptedIDs: []string{"s1"}}, nil
			})
	}()

	<-started
	_, err = c.Load(context.Background(), testScope("2026-03-03"),
		staticFetch(models.RosterEntry{ID: "s2"}))
	require.NoError(t, err)

	close(release)
	wg.Wait()

	assert.ErrorIs(t, submitErr, ErrSuperseded)
	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "s2", entries[0].ID)
	assert.False(t, entries[0].Final)
}
