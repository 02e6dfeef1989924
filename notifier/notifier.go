// Package notifier delivers fire-and-forget user notifications. Delivery
// failure is logged, never propagated: a state transition must not roll
// back because a message could not be sent.
package notifier

import (
	"context"
	"log/slog"
)

type Kind string

const (
	KindConflictReturnRequest Kind = "conflict_return_request"
	KindReservationReady      Kind = "reservation_ready"
	KindReservationExpired    Kind = "reservation_expired"
	KindReservationReminder   Kind = "reservation_reminder"
	KindRecordOverdue         Kind = "record_overdue"
)

type Notification struct {
	UserID        int64  `json:"user_id"`
	Kind          Kind   `json:"kind"`
	ItemID        int64  `json:"item_id,omitempty"`
	ReservationID int64  `json:"reservation_id,omitempty"`
	RecordID      int64  `json:"record_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Log writes notifications to the structured log. It is the default
// transport and the fallback target in tests.
type Log struct {
	L *slog.Logger
}

func NewLog(l *slog.Logger) *Log { return &Log{L: l} }

func (ln *Log) Notify(_ context.Context, n Notification) {
	ln.L.Info("notify",
		"kind", n.Kind,
		"user_id", n.UserID,
		"item_id", n.ItemID,
		"reservation_id", n.ReservationID,
		"record_id", n.RecordID,
	)
}

// Fanout forwards each notification to every configured transport.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, t := range f {
		t.Notify(ctx, n)
	}
}
