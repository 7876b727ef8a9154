package plan

import (
	"time"

	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

// Truncation is the time bucket granularity shared by grouping and drill-down pins
// buckets are computed in UTC; weeks start on Monday
type Truncation struct {
	Unit sqlb.Unit
}

// TruncationFor maps an aggregation interval to its granularity
func TruncationFor(iv filter.Interval) (Truncation, error) {
	switch iv {
	case filter.Day:
		return Truncation{Unit: sqlb.UnitDay}, nil
	case filter.Week:
		return Truncation{Unit: sqlb.UnitWeek}, nil
	case filter.Month:
		return Truncation{Unit: sqlb.UnitMonth}, nil
	case filter.Quarter:
		return Truncation{Unit: sqlb.UnitQuarter}, nil
	case filter.Year:
		return Truncation{Unit: sqlb.UnitYear}, nil
	}
	return Truncation{}, perr.ValidationField("interval", "unknown interval %q", iv)
}

// Start returns the UTC start of the bucket holding ts
func (t Truncation) Start(ts time.Time) time.Time {
	ts = ts.UTC()
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	switch t.Unit {
	case sqlb.UnitWeek:
		back := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -back)
	case sqlb.UnitMonth:
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	case sqlb.UnitQuarter:
		m := (ts.Month()-1)/3*3 + 1
		return time.Date(ts.Year(), m, 1, 0, 0, 0, 0, time.UTC)
	case sqlb.UnitYear:
		return time.Date(ts.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

// Next returns the start of the bucket after the one starting at start
func (t Truncation) Next(start time.Time) time.Time {
	switch t.Unit {
	case sqlb.UnitWeek:
		return start.AddDate(0, 0, 7)
	case sqlb.UnitMonth:
		return start.AddDate(0, 1, 0)
	case sqlb.UnitQuarter:
		return start.AddDate(0, 3, 0)
	case sqlb.UnitYear:
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 0, 1)
}

// Bounds returns [start, end) for a bucket key given as epoch seconds
func (t Truncation) Bounds(epoch int64) (time.Time, time.Time) {
	start := t.Start(time.Unix(epoch, 0))
	return start, t.Next(start)
}
