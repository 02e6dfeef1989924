// model/reservation.go
package model

import "time"

type ReservationStatus string

const (
	ReservationScheduled  ReservationStatus = "scheduled"
	ReservationActive     ReservationStatus = "active"
	ReservationConflicted ReservationStatus = "conflicted"
	ReservationExpired    ReservationStatus = "expired"
	ReservationCancelled  ReservationStatus = "cancelled"
	ReservationUsed       ReservationStatus = "used"
)

// Terminal reports whether the status permits no further transitions.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case ReservationExpired, ReservationCancelled, ReservationUsed:
		return true
	}
	return false
}

// transitions is the closed set of legal status moves; the reservation
// repo's UpdateStatus refuses anything not listed here. scheduled -> used
// is the early-pickup path: borrowing an item consumes the not-yet-due
// reservation directly.
var transitions = map[ReservationStatus][]ReservationStatus{
	ReservationScheduled:  {ReservationActive, ReservationConflicted, ReservationCancelled, ReservationUsed},
	ReservationActive:     {ReservationUsed, ReservationExpired, ReservationCancelled},
	ReservationConflicted: {ReservationActive, ReservationExpired, ReservationCancelled},
}

func CanTransition(from, to ReservationStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Reservation is a time-bounded claim by a user on an item. Start and End
// are UTC instants; local-zone rendering happens at the API edge only.
type Reservation struct {
	ID             int64             `json:"id"`
	ItemID         int64             `json:"item_id"`
	UserID         int64             `json:"user_id"`
	Start          time.Time         `json:"start"`
	End            time.Time         `json:"end"`
	Status         ReservationStatus `json:"status"`
	Notes          string            `json:"notes,omitempty"`
	ReminderSentAt *time.Time        `json:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (r *Reservation) Interval() Interval {
	return Interval{Start: r.Start, End: r.End}
}
