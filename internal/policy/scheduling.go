package policy

import (
	"fmt"
	"strings"
	"time"
)

type Boundary int

const (
	// BoundaryStrict treats bookings as half-open, so end == start does not conflict.
	BoundaryStrict Boundary = iota
	// BoundaryInclusive makes touching bookings conflict.
	BoundaryInclusive
)

func ParseBoundary(raw string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "strict":
		return BoundaryStrict, nil
	case "inclusive":
		return BoundaryInclusive, nil
	}
	return BoundaryStrict, fmt.Errorf("unknown overlap boundary %q", raw)
}

func (b Boundary) String() string {
	if b == BoundaryInclusive {
		return "inclusive"
	}
	return "strict"
}

type Interval struct {
	Start time.Time
	End   time.Time
}

func Overlaps(a, b Interval, boundary Boundary) bool {
	if boundary == BoundaryInclusive {
		return !a.Start.After(b.End) && !b.Start.After(a.End)
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// ScheduleWindow checks that a scheduled date lies in [now, now+window].
func ScheduleWindow(scheduled, now time.Time, window time.Duration) error {
	if scheduled.Before(now) {
		return fmt.Errorf("scheduled date %s is in the past", scheduled.Format(time.RFC3339))
	}
	if scheduled.After(now.Add(window)) {
		return fmt.Errorf("scheduled date %s is more than %s ahead", scheduled.Format(time.RFC3339), window)
	}
	return nil
}
