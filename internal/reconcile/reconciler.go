package reconcile

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/Nakib00/asps-dashboard-api/internal/draft"
	"github.com/Nakib00/asps-dashboard-api/internal/models"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

// State names the reconciler's position in the edit/submit cycle. READY is
// the steady state between edits; there is no terminal state.
type State string

const (
	StateIdle       State = "IDLE"
	StateLoading    State = "LOADING"
	StateReady      State = "READY"
	StateSubmitting State = "SUBMITTING"
)

// FetchFunc loads the roster for a scope from the upstream gateway.
type FetchFunc func(ctx context.Context, scope models.Scope) ([]models.RosterEntry, error)

// SubmitFunc sends a snapshotted batch upstream and reports the verdict.
type SubmitFunc func(ctx context.Context, scope models.Scope, batch models.DraftBatch) (*models.SubmissionResult, error)

// ErrSuperseded reports that the scope changed while a fetch or submission
// was in flight; the stale result was discarded, not applied.
var ErrSuperseded = appErrors.New("SCOPE_SUPERSEDED", http.StatusConflict, "scope changed while the request was in flight")

// ErrNothingToSubmit reports a submit with no loaded, editable entries.
var ErrNothingToSubmit = appErrors.New("NOTHING_TO_SUBMIT", http.StatusBadRequest, "no editable entries in the current scope")

type submitCall struct {
	done   chan struct{}
	result *models.SubmissionResult
	err    error
}

// Controller drives one editing session: seed the draft store from a fetch,
// accept local edits, submit the snapshot as one batch, and reconcile the
// server's verdict back into the store.
type Controller struct {
	mu          sync.Mutex
	state       State
	scope       models.Scope
	generation  uint64
	store       *draft.Store
	inflight    *submitCall
	lastOutcome models.Outcome
	logger      *zap.Logger
}

// NewController builds an idle controller around its own store.
func NewController(logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{state: StateIdle, store: draft.NewStore(), logger: logger}
}

// State returns the current machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Scope returns the active scope.
func (c *Controller) Scope() models.Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// LastOutcome returns the verdict of the most recent submission, empty when
// none has completed for the current scope.
func (c *Controller) LastOutcome() models.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOutcome
}

// Entries exposes the store's entries for rendering.
func (c *Controller) Entries() []models.RosterEntry {
	return c.store.Entries()
}

// Load fetches the roster for scope and seeds the store. A scope change while
// an earlier fetch is in flight wins: when the stale response arrives its
// scope key no longer matches and it is discarded with ErrSuperseded. An
// in-flight submission is likewise invalidated, not aborted on the wire.
func (c *Controller) Load(ctx context.Context, scope models.Scope, fetch FetchFunc) ([]models.RosterEntry, error) {
	c.mu.Lock()
	c.state = StateLoading
	c.scope = scope
	c.lastOutcome = ""
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	entries, err := fetch(ctx, scope)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		c.logger.Debug("stale_fetch_discarded",
			zap.String("scope", scope.Key()),
			zap.String("current_scope", c.scope.Key()),
		)
		return nil, ErrSuperseded
	}

	if err != nil {
		c.state = StateIdle
		return nil, err
	}

	c.store.Seed(scope, entries)
	c.state = StateReady
	return c.store.Entries(), nil
}

// SetStatus applies a local edit to the active scope.
func (c *Controller) SetStatus(id string, status models.EntryStatus) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateSubmitting:
		return appErrors.ErrSubmissionInFlight
	case StateReady:
		return c.store.SetStatus(id, status)
	default:
		return appErrors.Clone(appErrors.ErrConflict, "no roster loaded for editing")
	}
}

// Submit snapshots the store and sends it as one atomic batch. At most one
// submission is in flight per controller: a second Submit during SUBMITTING
// issues no upstream call and instead returns the in-flight call's eventual
// result. On total failure the batch is preserved untouched for an explicit
// user retry.
func (c *Controller) Submit(ctx context.Context, submit SubmitFunc) (*models.SubmissionResult, error) {
	c.mu.Lock()

	if c.state == StateSubmitting && c.inflight != nil {
		call := c.inflight
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if c.state != StateReady {
		c.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, "no roster loaded for submission")
	}

	batch := c.store.Snapshot()
	if len(batch.Entries) == 0 {
		c.mu.Unlock()
		return nil, ErrNothingToSubmit
	}

	scope := c.scope
	gen := c.generation
	call := &submitCall{done: make(chan struct{})}
	c.inflight = call
	c.state = StateSubmitting
	c.store.Freeze()
	c.mu.Unlock()

	result, err := submit(ctx, scope, batch)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		// The scope moved on while submitting; Load already reseeded the
		// store, so the verdict has nothing to apply to.
		call.result, call.err = nil, ErrSuperseded
		close(call.done)
		c.inflight = nil
		return nil, ErrSuperseded
	}

	c.store.Unfreeze()
	c.state = StateReady
	c.inflight = nil

	if err != nil {
		c.lastOutcome = models.OutcomeFailure
		c.logger.Warn("batch_submission_failed",
			zap.String("scope", scope.Key()),
			zap.Int("entries", len(batch.Entries)),
			zap.Error(err),
		)
		call.result, call.err = nil, err
		close(call.done)
		return nil, err
	}

	c.reconcile(result)
	call.result, call.err = result, nil
	close(call.done)
	return result, nil
}

func (c *Controller) reconcile(result *models.SubmissionResult) {
	if result.Outcome == "" {
		result.Outcome = result.Classify()
	}
	c.lastOutcome = result.Outcome

	switch result.Outcome {
	case models.OutcomeSuccess:
		c.store.MarkFinal(result.AcceptedIDs)
	case models.OutcomePartial:
		c.store.MarkFinal(result.AcceptedIDs)
		c.store.MarkRejected(result.RejectedIDs)
	case models.OutcomeFailure:
		c.store.MarkRejected(result.RejectedIDs)
	}

	c.logger.Info("batch_reconciled",
		zap.String("scope", c.scope.Key()),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("accepted", len(result.AcceptedIDs)),
		zap.Int("rejected", len(result.RejectedIDs)),
	)
}
