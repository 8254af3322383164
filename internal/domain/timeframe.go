package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeFrame is an aggregation granularity for snapshots
type TimeFrame string

const (
	TimeFrameDay     TimeFrame = "DAY"
	TimeFrameWeek    TimeFrame = "WEEK"
	TimeFrameMonth   TimeFrame = "MONTH"
	TimeFrameQuarter TimeFrame = "QUARTER"
	TimeFrameYear    TimeFrame = "YEAR"
)

// AllTimeFrames lists every supported granularity, finest first
func AllTimeFrames() []TimeFrame {
	return []TimeFrame{TimeFrameDay, TimeFrameWeek, TimeFrameMonth, TimeFrameQuarter, TimeFrameYear}
}

// ParseTimeFrame accepts any casing of a supported frame name
func ParseTimeFrame(s string) (TimeFrame, error) {
	tf := TimeFrame(strings.ToUpper(strings.TrimSpace(s)))
	if err := tf.Validate(); err != nil {
		return "", err
	}
	return tf, nil
}

// Validate returns ErrInvalidTimeFrame for unknown frames
func (tf TimeFrame) Validate() error {
	switch tf {
	case TimeFrameDay, TimeFrameWeek, TimeFrameMonth, TimeFrameQuarter, TimeFrameYear:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidTimeFrame, string(tf))
}

// PeriodStart truncates t to the start of its period in UTC.
// Weeks are ISO weeks and start on Monday.
func (tf TimeFrame) PeriodStart(t time.Time) (time.Time, error) {
	t = t.UTC()
	y, m, d := t.Date()

	switch tf {
	case TimeFrameDay:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case TimeFrameWeek:
		sinceMonday := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-sinceMonday, 0, 0, 0, 0, time.UTC), nil
	case TimeFrameMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), nil
	case TimeFrameQuarter:
		first := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, first, 1, 0, 0, 0, 0, time.UTC), nil
	case TimeFrameYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, tf.Validate()
}
