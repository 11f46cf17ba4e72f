package pipeline

import (
	"fmt"
	"time"
)

// WeekSeconds is the length of one reward week.
const WeekSeconds uint64 = 7 * 24 * 60 * 60

// Window is the accounting period of one run. Week is the id the snapshot is
// stored under; WindowWeek is the week whose trades are rewarded.
type Window struct {
	Week       uint64 `json:"week"`
	WindowWeek uint64 `json:"window_week"`
	Start      uint64 `json:"start_ts"`
	End        uint64 `json:"end_ts"`
}

// WeekID returns floor(unix / WeekSeconds).
func WeekID(now time.Time) uint64 {
	return uint64(now.Unix()) / WeekSeconds
}

// WindowFor returns the window weeksInPast weeks before the week containing now.
// The window covers [Start, End).
func WindowFor(now time.Time, weeksInPast uint64) (Window, error) {
	if now.Unix() < 0 {
		return Window{}, fmt.Errorf("time %s is before the epoch", now)
	}
	week := WeekID(now)
	if weeksInPast > week {
		return Window{}, fmt.Errorf("weeks in past %d exceeds week id %d", weeksInPast, week)
	}
	target := week - weeksInPast
	return Window{
		Week:       week,
		WindowWeek: target,
		Start:      target * WeekSeconds,
		End:        (target + 1) * WeekSeconds,
	}, nil
}

// queryBounds converts the window to the exclusive bounds of the trade query.
func (w Window) queryBounds() (lower, upper uint64) {
	lower = w.Start
	if lower > 0 {
		lower--
	}
	return lower, w.End
}
