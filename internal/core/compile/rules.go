package compile

import (
	"time"

	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

const userCol = "user_id"

// MaxOfficeHoursDays bounds the calendar days one office hours filter may cover
// Each day binds two parameters
const MaxOfficeHoursDays = 366

// Check runs every filter check that needs no store access
func Check(f filter.Filter) error {
	if err := CheckIssueRules(f); err != nil {
		return err
	}
	if f.OfficeHours != nil {
		return checkOfficeHours(*f.OfficeHours)
	}
	return nil
}

func checkOfficeHours(oh filter.OfficeHours) error {
	if _, err := clock(oh.Start); err != nil {
		return perr.ValidationField("office_hours.start", "expected HH:MM, got %q", oh.Start)
	}
	if _, err := clock(oh.End); err != nil {
		return perr.ValidationField("office_hours.end", "expected HH:MM, got %q", oh.End)
	}
	if oh.From.After(oh.To) {
		return perr.ValidationField("office_hours.from", "from is after to")
	}
	days := int(utcDay(oh.To).Sub(utcDay(oh.From))/(24*time.Hour)) + 1
	if days > MaxOfficeHoursDays {
		return perr.ValidationField("office_hours.to", "office hours cover %d days, at most %d are allowed", days, MaxOfficeHoursDays)
	}
	return nil
}

// CheckIssueRules rejects filter combinations the issue type cannot serve
// Alerts carry no user or time zone columns, so every user-bound input is refused
// rather than silently dropped
func CheckIssueRules(f filter.Filter) error {
	if f.IssueType != filter.Alert {
		return nil
	}
	if f.OfficeHours != nil {
		return perr.ValidationField("office_hours", "office hours are not supported for alerts")
	}
	if len(f.UserIDs) > 0 {
		return perr.ValidationField("user_ids", "user filters are not supported for alerts")
	}
	if len(f.UserNames) > 0 {
		return perr.ValidationField("user_names", "user filters are not supported for alerts")
	}
	if _, ok := f.Conditions[userCol]; ok {
		return perr.ValidationField("conditions.user_id", "user filters are not supported for alerts")
	}
	if f.UserScope != nil {
		return perr.ValidationField("user_scope", "user scoping is not supported for alerts")
	}
	if f.Across == filter.UserID {
		return perr.ValidationField("across", "alerts cannot be grouped by user")
	}
	if s, ok := f.Stack(); ok && s == filter.UserID {
		return perr.ValidationField("stacks", "alerts cannot be stacked by user")
	}
	if _, ok := f.MissingFields[userCol]; ok {
		return perr.ValidationField("missing_fields.user_id", "user filters are not supported for alerts")
	}
	for _, s := range f.Sort {
		if s.Field == userCol {
			return perr.ValidationField("sort", "alerts cannot be sorted by user")
		}
	}
	return nil
}
