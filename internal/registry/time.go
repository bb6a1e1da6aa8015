package registry

import (
	"errors"
	"fmt"
)

// NanosPerDay is the fixed day-length constant used to snap timestamps to
// UTC day boundaries throughout the rewards pipeline.
const NanosPerDay uint64 = 86_400 * 1_000_000_000

// DayStartNanos wraps a nanosecond timestamp already snapped to the start
// of a UTC day.
type DayStartNanos uint64

// DayEndNanos wraps a nanosecond timestamp snapped to a UTC day boundary,
// used as the canonical per-day key throughout the rewards pipeline. Two
// DayEndNanos values NanosPerDay apart are consecutive days.
type DayEndNanos uint64

// NewDayStart snaps ts down to its containing day's start.
func NewDayStart(ts uint64) DayStartNanos {
	return DayStartNanos((ts / NanosPerDay) * NanosPerDay)
}

// NewDayEnd snaps ts down to its containing day's boundary key.
func NewDayEnd(ts uint64) DayEndNanos {
	return DayEndNanos((ts / NanosPerDay) * NanosPerDay)
}

func (d DayStartNanos) Get() uint64 { return uint64(d) }
func (d DayEndNanos) Get() uint64   { return uint64(d) }

// RewardPeriod is an interval of UTC-day-aligned timestamps, strictly in
// the past, over which the rewards calculator runs.
type RewardPeriod struct {
	Start DayStartNanos
	End   DayEndNanos
}

// ErrStartAfterEnd and ErrEndInFuture mirror the InputError taxonomy's
// RewardPeriod-construction failure kinds.
var (
	ErrStartAfterEnd = errors.New("reward period: start after end")
	ErrEndInFuture   = errors.New("reward period: end in future")
)

// NewRewardPeriod validates and constructs a RewardPeriod. nowDayStart is
// passed in explicitly by the caller (the collaborator layer) rather than
// read from the system clock, so the core stays a pure function of its
// inputs per §5.
func NewRewardPeriod(start DayStartNanos, end DayEndNanos, nowDayStart DayStartNanos) (RewardPeriod, error) {
	if uint64(start) > uint64(end) {
		return RewardPeriod{}, ErrStartAfterEnd
	}
	if uint64(end) >= uint64(nowDayStart) {
		return RewardPeriod{}, ErrEndInFuture
	}
	return RewardPeriod{Start: start, End: end}, nil
}

// Contains reports whether ts (a raw nanosecond timestamp) falls within
// the period, inclusive of both boundaries.
func (p RewardPeriod) Contains(ts uint64) bool {
	return ts >= uint64(p.Start) && ts <= uint64(p.End)
}

// DaysBetween returns the inclusive day count of the period.
func (p RewardPeriod) DaysBetween() uint64 {
	return (uint64(p.End)-uint64(p.Start))/NanosPerDay + 1
}

func (p RewardPeriod) String() string {
	return fmt.Sprintf("[%d, %d]", p.Start, p.End)
}
