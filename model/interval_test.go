package model

import (
	"testing"
	"time"
)

func ts(h int) time.Time {
	return time.Date(2026, 3, 10, h, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", Interval{ts(1), ts(2)}, Interval{ts(3), ts(4)}, false},
		{"back to back", Interval{ts(1), ts(2)}, Interval{ts(2), ts(3)}, false},
		{"partial", Interval{ts(1), ts(3)}, Interval{ts(2), ts(4)}, true},
		{"contained", Interval{ts(1), ts(4)}, Interval{ts(2), ts(3)}, true},
		{"identical", Interval{ts(1), ts(2)}, Interval{ts(1), ts(2)}, true},
	}
	for _, c := range cases {
		if got := c.a.Overlaps(c.b); got != c.want {
			t.Errorf("%s: Overlaps = %v, want %v", c.name, got, c.want)
		}
		// symmetric
		if got := c.b.Overlaps(c.a); got != c.want {
			t.Errorf("%s (reversed): Overlaps = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestOverlapsMixedZones(t *testing.T) {
	// Same instants expressed in different zones must still overlap.
	sh, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	a := Interval{ts(1), ts(3)}
	b := Interval{ts(2).In(sh), ts(4).In(sh)}
	if !a.Overlaps(b) {
		t.Fatal("zone representation changed overlap result")
	}
}

func TestContains(t *testing.T) {
	iv := Interval{ts(1), ts(2)}
	if !iv.Contains(ts(1)) {
		t.Error("start should be contained")
	}
	if iv.Contains(ts(2)) {
		t.Error("end is exclusive")
	}
	if iv.Contains(ts(0)) {
		t.Error("before start should not be contained")
	}
}

func TestValidate(t *testing.T) {
	now := ts(0)
	maxSpan := 7 * 24 * time.Hour

	if err := (Interval{ts(2), ts(1)}).Validate(now, maxSpan); err != ErrIntervalInverted {
		t.Errorf("inverted: got %v", err)
	}
	if err := (Interval{now.Add(-time.Minute), ts(2)}).Validate(now, maxSpan); err != ErrIntervalPast {
		t.Errorf("past start: got %v", err)
	}
	long := Interval{ts(1), ts(1).Add(maxSpan + time.Second)}
	if err := long.Validate(now, maxSpan); err != ErrIntervalTooLong {
		t.Errorf("too long: got %v", err)
	}
	if err := (Interval{ts(1), ts(2)}).Validate(now, maxSpan); err != nil {
		t.Errorf("valid interval rejected: %v", err)
	}
}
