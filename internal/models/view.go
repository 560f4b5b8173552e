package models

// ViewMode is the explicit tagged-union view state of a dashboard module.
// A single enumerated value rather than boolean flags, so invalid
// combinations cannot be represented.
type ViewMode string

const (
	// ViewModeMark is the editable roster view (attendance marking,
	// fee payment marking).
	ViewModeMark ViewMode = "MARK"
	// ViewModeHistory is the read-only view of persisted records.
	ViewModeHistory ViewMode = "HISTORY"
	// ViewModeOverview is the fee module's default read view.
	ViewModeOverview ViewMode = "OVERVIEW"
)
