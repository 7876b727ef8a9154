// Package filter holds the request model the insights engine compiles into queries
//
// A Filter is built once per request and treated as immutable; the With helpers
// return modified deep copies so drill-down workers never share mutable state
package filter

import (
	"maps"
	"slices"
	"time"
)

// IssueType selects the entity family a filter targets
type IssueType string

// Issue types
const (
	Incident IssueType = "incident"
	Alert    IssueType = "alert"
)

// Calculation selects the aggregate metric set
type Calculation string

// Calculations
const (
	Count          Calculation = "count"
	ResolutionTime Calculation = "resolution_time"
	ResponseTime   Calculation = "response_time"
)

// Interval is the bucket width for time dimensions
type Interval string

// Intervals
const (
	Day     Interval = "day"
	Week    Interval = "week"
	Month   Interval = "month"
	Quarter Interval = "quarter"
	Year    Interval = "year"
)

// SortField orders results by a metric name or the grouping dimension
type SortField struct {
	Field string `json:"field" validate:"required"`
	Desc  bool   `json:"desc"`
}

// TimeRange is an open interval; either bound may be absent
// From compiles to > (>= when FromInclusive) and To to <
type TimeRange struct {
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
	FromInclusive bool       `json:"from_inclusive,omitempty"`
}

// Empty reports whether neither bound is set
func (r *TimeRange) Empty() bool { return r == nil || (r.From == nil && r.To == nil) }

// OfficeHours is a daily local time window applied to every calendar day in [From, To]
// End at or before Start means the window crosses midnight
type OfficeHours struct {
	Start   string    `json:"start" validate:"required,hhmm"`
	End     string    `json:"end" validate:"required,hhmm"`
	From    time.Time `json:"from" validate:"required"`
	To      time.Time `json:"to" validate:"required"`
	Exclude bool      `json:"exclude"`
}

// UserScope asks the identity collaborator to restrict users to org units
type UserScope struct {
	OURefs []string `json:"ou_refs" validate:"required,min=1,dive,required"`
}

// Pin restricts a grouped query to the rows of one bucket of Dim
// Key is compared with the grouping key exactly as the bucket returned it
type Pin struct {
	Dim  Dimension
	Key  string
	Null bool
}

// Filter is the structured request model
type Filter struct {
	IssueType   IssueType   `json:"issue_type" validate:"required,oneof=incident alert"`
	Across      Dimension   `json:"across,omitempty"`
	Stacks      []Dimension `json:"stacks,omitempty"`
	Calculation Calculation `json:"calculation,omitempty" validate:"omitempty,oneof=count resolution_time response_time"`
	Sort        []SortField `json:"sort,omitempty" validate:"dive"`
	AggInterval Interval    `json:"interval,omitempty" validate:"omitempty,oneof=day week month quarter year"`

	CreatedAt      *TimeRange `json:"created_at,omitempty"`
	ResolvedAt     *TimeRange `json:"resolved_at,omitempty"`
	AcknowledgedAt *TimeRange `json:"acknowledged_at,omitempty"`

	Priorities []string `json:"priorities,omitempty"`
	Urgencies  []string `json:"urgencies,omitempty"`
	Statuses   []string `json:"statuses,omitempty"`
	Severities []string `json:"severities,omitempty"`
	ServiceIDs []string `json:"pd_service_ids,omitempty"`
	UserIDs    []string `json:"user_ids,omitempty"`
	UserNames  []string `json:"user_names,omitempty"`

	// Conditions holds column equality constraints; a slice value means membership
	Conditions map[string]any `json:"conditions,omitempty"`
	// MissingFields maps a column to true (must be null) or false (must be present)
	MissingFields map[string]bool `json:"missing_fields,omitempty"`

	OfficeHours *OfficeHours `json:"office_hours,omitempty"`
	ScopeKeys   []string     `json:"scope_keys,omitempty"`
	UserScope   *UserScope   `json:"user_scope,omitempty"`

	// Pin is set by drill-downs only
	Pin *Pin `json:"-" validate:"-"`
}

// Stack returns the honoured drill-down dimension, if any
func (f Filter) Stack() (Dimension, bool) {
	if len(f.Stacks) == 0 || f.Stacks[0] == "" {
		return "", false
	}
	return f.Stacks[0], true
}

// CalculationOrDefault returns the calculation, defaulting to Count
func (f Filter) CalculationOrDefault() Calculation {
	if f.Calculation == "" {
		return Count
	}
	return f.Calculation
}

// IntervalOrDefault returns the interval, defaulting to Day
func (f Filter) IntervalOrDefault() Interval {
	if f.AggInterval == "" {
		return Day
	}
	return f.AggInterval
}

// Clone returns a deep copy
func (f Filter) Clone() Filter {
	out := f
	out.Stacks = slices.Clone(f.Stacks)
	out.Sort = slices.Clone(f.Sort)
	out.CreatedAt = cloneRange(f.CreatedAt)
	out.ResolvedAt = cloneRange(f.ResolvedAt)
	out.AcknowledgedAt = cloneRange(f.AcknowledgedAt)
	out.Priorities = slices.Clone(f.Priorities)
	out.Urgencies = slices.Clone(f.Urgencies)
	out.Statuses = slices.Clone(f.Statuses)
	out.Severities = slices.Clone(f.Severities)
	out.ServiceIDs = slices.Clone(f.ServiceIDs)
	out.UserIDs = slices.Clone(f.UserIDs)
	out.UserNames = slices.Clone(f.UserNames)
	out.Conditions = maps.Clone(f.Conditions)
	out.MissingFields = maps.Clone(f.MissingFields)
	out.ScopeKeys = slices.Clone(f.ScopeKeys)
	if f.Pin != nil {
		pn := *f.Pin
		out.Pin = &pn
	}
	if f.OfficeHours != nil {
		oh := *f.OfficeHours
		out.OfficeHours = &oh
	}
	if f.UserScope != nil {
		us := UserScope{OURefs: slices.Clone(f.UserScope.OURefs)}
		out.UserScope = &us
	}
	return out
}

func cloneRange(r *TimeRange) *TimeRange {
	if r == nil {
		return nil
	}
	c := *r
	if r.From != nil {
		t := *r.From
		c.From = &t
	}
	if r.To != nil {
		t := *r.To
		c.To = &t
	}
	return &c
}

// WithAcross returns a copy grouped by d with no drill-down
func (f Filter) WithAcross(d Dimension) Filter {
	out := f.Clone()
	out.Across = d
	out.Stacks = nil
	return out
}

// WithConditions returns a copy with kv merged into Conditions; kv wins on conflict
func (f Filter) WithConditions(kv map[string]any) Filter {
	out := f.Clone()
	if len(kv) == 0 {
		return out
	}
	if out.Conditions == nil {
		out.Conditions = make(map[string]any, len(kv))
	}
	maps.Copy(out.Conditions, kv)
	return out
}

// WithPin returns a copy restricted to the bucket of d keyed key, or its null bucket
func (f Filter) WithPin(d Dimension, key string, null bool) Filter {
	out := f.Clone()
	out.Pin = &Pin{Dim: d, Key: key, Null: null}
	return out
}

// WithMissing returns a copy requiring column to be null (true) or present (false)
func (f Filter) WithMissing(column string, missing bool) Filter {
	out := f.Clone()
	if out.MissingFields == nil {
		out.MissingFields = map[string]bool{}
	}
	out.MissingFields[column] = missing
	return out
}

// Range returns the range bound to a timestamp column name
func (f Filter) Range(column string) *TimeRange {
	switch column {
	case "created_at":
		return f.CreatedAt
	case "resolved_at":
		return f.ResolvedAt
	case "acknowledged_at":
		return f.AcknowledgedAt
	}
	return nil
}

// WithRangeWithin returns a copy whose range on column is intersected with [start, end)
func (f Filter) WithRangeWithin(column string, start, end time.Time) Filter {
	out := f.Clone()
	r := Intersect(out.Range(column), start, end)
	switch column {
	case "created_at":
		out.CreatedAt = r
	case "resolved_at":
		out.ResolvedAt = r
	case "acknowledged_at":
		out.AcknowledgedAt = r
	}
	return out
}

// Intersect narrows r to [start, end); the stricter bound wins on each side
func Intersect(r *TimeRange, start, end time.Time) *TimeRange {
	s, e := start, end
	out := &TimeRange{From: &s, To: &e, FromInclusive: true}
	if r == nil {
		return out
	}
	if r.From != nil && !r.From.Before(start) {
		from := *r.From
		out.From = &from
		out.FromInclusive = r.FromInclusive
	}
	if r.To != nil && r.To.Before(end) {
		to := *r.To
		out.To = &to
	}
	return out
}
