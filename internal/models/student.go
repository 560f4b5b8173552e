package models

// Student is a minimal directory entry used to resolve invoice targets.
type Student struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	ClassID  string `json:"class_id,omitempty"`
}
