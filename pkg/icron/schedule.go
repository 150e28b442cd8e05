package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerInfo describes where a cron expression sits relative to a
// reference time.
type TriggerInfo struct {
	Expression string
	Next       time.Time
	Last       time.Time

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// GetTriggerInfo computes the next and most recent trigger times of a
// standard five-field cron expression around refTime. Last is the zero time
// when no trigger occurred within the past year.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	next := schedule.Next(refTime)

	// Walk backwards hour by hour until a candidate fires at or before
	// refTime. Standard expressions trigger at least once a year.
	var last time.Time
	searchStart := refTime.Add(-time.Minute)
	for i := range 366 * 24 {
		candidate := schedule.Next(searchStart.Add(-time.Duration(i) * time.Hour))
		if !candidate.After(refTime) {
			last = candidate
			break
		}
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       next,
		Last:       last,
	}
	if !last.IsZero() {
		info.TimeSinceLast = refTime.Sub(last)
	}
	info.TimeUntilNext = next.Sub(refTime)
	return info, nil
}
