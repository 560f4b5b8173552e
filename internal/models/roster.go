package models

import (
	"sort"
	"strings"
)

// Module names the two dashboard flows that share the draft/reconcile engine.
type Module string

const (
	ModuleAttendance Module = "attendance"
	ModuleFees       Module = "fees"
)

// EntryStatus is the editable status carried by a roster entry. Attendance
// entries use the UNSET/PRESENT/ABSENT/LATE set, fee entries PENDING/PAID.
type EntryStatus string

const (
	StatusUnset   EntryStatus = "UNSET"
	StatusPresent EntryStatus = "PRESENT"
	StatusAbsent  EntryStatus = "ABSENT"
	StatusLate    EntryStatus = "LATE"
	StatusPending EntryStatus = "PENDING"
	StatusPaid    EntryStatus = "PAID"
)

// ValidFor reports whether the status belongs to the module's status set.
func (s EntryStatus) ValidFor(module Module) bool {
	switch module {
	case ModuleAttendance:
		return s == StatusUnset || s == StatusPresent || s == StatusAbsent || s == StatusLate
	case ModuleFees:
		return s == StatusPending || s == StatusPaid
	default:
		return false
	}
}

// Scope is the filter context determining which roster is fetched: a date and
// class for attendance, a filter set for fees.
type Scope struct {
	Module  Module            `json:"module"`
	Date    string            `json:"date,omitempty"`
	ClassID string            `json:"class_id,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Key produces the canonical scope key. Filter order is normalised so two
// scopes with the same content always compare equal.
func (s Scope) Key() string {
	parts := []string{string(s.Module), s.Date, s.ClassID}
	if len(s.Filters) > 0 {
		keys := make([]string, 0, len(s.Filters))
		for k := range s.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+"="+s.Filters[k])
		}
	}
	return strings.Join(parts, "|")
}

// RosterEntry is one editable row of the current scope's roster.
type RosterEntry struct {
	ID      string            `json:"id"`
	Display map[string]string `json:"display,omitempty"`
	Status  EntryStatus       `json:"status"`
	// Final marks entries accepted by a previous submission; they are no
	// longer editable within the session.
	Final bool `json:"final,omitempty"`
	// Reason carries the server's rejection reason code after a partial
	// submission outcome.
	Reason string `json:"reason,omitempty"`
}

// DraftBatch is an immutable snapshot of the draft store, submitted as one
// unit. All entries share the scope key.
type DraftBatch struct {
	ScopeKey string        `json:"scope_key"`
	Entries  []RosterEntry `json:"entries"`
}

// Outcome classifies the server's answer to a batch submission.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomePartial Outcome = "PARTIAL"
	OutcomeFailure Outcome = "FAILURE"
)

// SubmissionResult is the reconciled server verdict for one submitted batch.
type SubmissionResult struct {
	Outcome     Outcome           `json:"outcome"`
	AcceptedIDs []string          `json:"accepted_ids,omitempty"`
	RejectedIDs map[string]string `json:"rejected_ids,omitempty"`
}

// Classify derives the outcome from accepted/rejected counts.
func (r *SubmissionResult) Classify() Outcome {
	switch {
	case len(r.RejectedIDs) == 0:
		return OutcomeSuccess
	case len(r.AcceptedIDs) == 0:
		return OutcomeFailure
	default:
		return OutcomePartial
	}
}
