// Package schema describes the tenant tables the insights engine reads
//
// A Family's column list doubles as the allow-list for compiled predicates: nothing
// outside it ever reaches generated SQL.
package schema

import (
	"regexp"

	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

// Column is one readable column of a family
type Column struct {
	Name string
	Type sqlb.Type
	// Fold marks case-insensitive categorical columns
	Fold bool
}

// Family is the table layout behind one issue type
type Family struct {
	Issue   filter.IssueType
	Table   string
	Alias   string
	Columns []Column
	// TimeZone names the per-row zone column; empty when the family has none
	TimeZone string
	// Durations maps time calculations to their precomputed seconds column
	Durations map[filter.Calculation]string
}

// Service label table, joined on pd_service_id
const (
	ServicesTable = "pd_services"
	ServicesAlias = "s"
	ServiceName   = "name"
)

var incidents = &Family{
	Issue: filter.Incident,
	Table: "pd_incidents",
	Alias: "i",
	Columns: []Column{
		{Name: "id", Type: sqlb.UUID},
		{Name: "pd_service_id", Type: sqlb.UUID},
		{Name: "pd_id", Type: sqlb.Text},
		{Name: "summary", Type: sqlb.Text},
		{Name: "priority", Type: sqlb.Text},
		{Name: "urgency", Type: sqlb.Text, Fold: true},
		{Name: "status", Type: sqlb.Text, Fold: true},
		{Name: "user_id", Type: sqlb.UUID},
		{Name: "user_name", Type: sqlb.Text},
		{Name: "assignee_ids", Type: sqlb.UUIDArray},
		{Name: "time_zone", Type: sqlb.Text},
		{Name: "created_at", Type: sqlb.Timestamptz},
		{Name: "resolved_at", Type: sqlb.Timestamptz},
		{Name: "acknowledged_at", Type: sqlb.Timestamptz},
		{Name: "solve_time", Type: sqlb.Bigint},
		{Name: "response_time", Type: sqlb.Bigint},
	},
	TimeZone: "time_zone",
	Durations: map[filter.Calculation]string{
		filter.ResolutionTime: "solve_time",
		filter.ResponseTime:   "response_time",
	},
}

var alerts = &Family{
	Issue: filter.Alert,
	Table: "pd_alerts",
	Alias: "a",
	Columns: []Column{
		{Name: "id", Type: sqlb.UUID},
		{Name: "pd_service_id", Type: sqlb.UUID},
		{Name: "incident_id", Type: sqlb.UUID},
		{Name: "pd_id", Type: sqlb.Text},
		{Name: "summary", Type: sqlb.Text},
		{Name: "severity", Type: sqlb.Text, Fold: true},
		{Name: "status", Type: sqlb.Text, Fold: true},
		{Name: "incident_priority", Type: sqlb.Text},
		{Name: "created_at", Type: sqlb.Timestamptz},
		{Name: "resolved_at", Type: sqlb.Timestamptz},
		{Name: "acknowledged_at", Type: sqlb.Timestamptz},
		{Name: "solve_time", Type: sqlb.Bigint},
		{Name: "response_time", Type: sqlb.Bigint},
	},
	Durations: map[filter.Calculation]string{
		filter.ResolutionTime: "solve_time",
		filter.ResponseTime:   "response_time",
	},
}

// For returns the family targeted by t
func For(t filter.IssueType) (*Family, error) {
	switch t {
	case filter.Incident:
		return incidents, nil
	case filter.Alert:
		return alerts, nil
	}
	return nil, perr.ValidationField("issue_type", "unknown issue type %q", t)
}

// Column looks up a column by name
func (f *Family) Column(name string) (Column, bool) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Allows reports whether name is on the family's allow-list
func (f *Family) Allows(name string) bool {
	_, ok := f.Column(name)
	return ok
}

// Col returns name qualified by the family alias
func (f *Family) Col(name string) sqlb.Col { return sqlb.C(f.Alias, name) }

// Source returns the family table inside the tenant schema
func (f *Family) Source(tenant string) sqlb.Table {
	return sqlb.Table{Schema: tenant, Name: f.Table, Alias: f.Alias}
}

// Services returns the service label table inside the tenant schema
func Services(tenant string) sqlb.Table {
	return sqlb.Table{Schema: tenant, Name: ServicesTable, Alias: ServicesAlias}
}

var tenantRe = regexp.MustCompile(`^[a-z0-9_]{1,63}$`)

// ValidTenant rejects tenant names that cannot be a schema
func ValidTenant(tenant string) error {
	if !tenantRe.MatchString(tenant) {
		return perr.InvalidArgf("invalid tenant %q", tenant)
	}
	return nil
}
