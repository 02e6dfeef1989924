// model/interval.go
package model

import (
	"errors"
	"time"
)

var (
	ErrIntervalInverted = errors.New("interval end must be after start")
	ErrIntervalPast     = errors.New("interval starts in the past")
	ErrIntervalTooLong  = errors.New("interval exceeds maximum span")
)

// Interval is a half-open time range [Start, End). Both bounds are UTC
// instants; comparing zone-naive wall-clock values is exactly the bug
// class this type exists to rule out.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals share any instant.
// Back-to-back intervals (a.End == b.Start) do not overlap.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// Contains reports whether t falls inside [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Validate checks the creation-time invariants: end after start, start
// not in the past, span within policy.
func (iv Interval) Validate(now time.Time, maxSpan time.Duration) error {
	if !iv.End.After(iv.Start) {
		return ErrIntervalInverted
	}
	if iv.Start.Before(now) {
		return ErrIntervalPast
	}
	if maxSpan > 0 && iv.Duration() > maxSpan {
		return ErrIntervalTooLong
	}
	return nil
}
