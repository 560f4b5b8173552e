package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeKeyCanonical(t *testing.T) {
	a := Scope{Module: ModuleFees, Filters: map[string]string{"month": "2026-03", "status": "PENDING"}}
	b := Scope{Module: ModuleFees, Filters: map[string]string{"status": "PENDING", "month": "2026-03"}}
	assert.Equal(t, a.Key(), b.Key())

	c := Scope{Module: ModuleFees, Filters: map[string]string{"month": "2026-04", "status": "PENDING"}}
	assert.NotEqual(t, a.Key(), c.Key())

	attendance := Scope{Module: ModuleAttendance, Date: "2026-03-02", ClassID: "7A"}
	assert.Equal(t, "attendance|2026-03-02|7A", attendance.Key())
}

func TestEntryStatusValidFor(t *testing.T) {
	assert.True(t, StatusPresent.ValidFor(ModuleAttendance))
	assert.True(t, StatusLate.ValidFor(ModuleAttendance))
	assert.False(t, StatusPaid.ValidFor(ModuleAttendance))

	assert.True(t, StatusPaid.ValidFor(ModuleFees))
	assert.False(t, StatusAbsent.ValidFor(ModuleFees))
}

func TestSubmissionResultClassify(t *testing.T) {
	success := SubmissionResult{AcceptedIDs: []string{"a", "b"}}
	assert.Equal(t, OutcomeSuccess, success.Classify())

	empty := SubmissionResult{}
	assert.Equal(t, OutcomeSuccess, empty.Classify())

	partial := SubmissionResult{AcceptedIDs: []string{"a"}, RejectedIDs: map[string]string{"b": "x"}}
	assert.Equal(t, OutcomePartial, partial.Classify())

	failure := SubmissionResult{RejectedIDs: map[string]string{"a": "x"}}
	assert.Equal(t, OutcomeFailure, failure.Classify())
}
