// model/record.go
package model

import "time"

type RecordStatus string

const (
	RecordUsing    RecordStatus = "using"
	RecordReturned RecordStatus = "returned"
)

// Record is evidence that a user is (or was) in physical possession of an
// item. SpacePath is denormalized at borrow time so history survives
// later space moves.
type Record struct {
	ID            int64        `json:"id"`
	ItemID        int64        `json:"item_id"`
	UserID        int64        `json:"user_id"`
	SpacePath     string       `json:"space_path,omitempty"`
	UsageLocation string       `json:"usage_location,omitempty"`
	StartTime     time.Time    `json:"start_time"`
	ReturnTime    *time.Time   `json:"return_time,omitempty"`
	Status        RecordStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Overdue reports whether a still-open record has been out longer than
// the threshold, measured against the given UTC instant.
func (r *Record) Overdue(now time.Time, threshold time.Duration) bool {
	if r.Status != RecordUsing {
		return false
	}
	return now.Sub(r.StartTime) > threshold
}
