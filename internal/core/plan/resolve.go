package plan

import (
	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/schema"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

// Output column names of a grouped query
const (
	KeyAlias   = "bucket_key"
	LabelAlias = "bucket_label"
)

// Grouping is the select, group by and key order fragments for one dimension
type Grouping struct {
	Dim filter.Dimension
	// Column is the family column the key derives from
	Column  string
	Select  []sqlb.Field
	GroupBy []sqlb.Expr
	// Services is set when the label reads the joined service table
	Services bool
	// Time groupings carry the truncation used to turn a key back into a range
	Time       bool
	Truncation Truncation
}

// KeyOrder orders by the bucket key
func (g Grouping) KeyOrder(desc bool) sqlb.Order {
	return sqlb.Order{E: sqlb.C("", KeyAlias), Desc: desc}
}

type dimensionDef struct {
	columns map[filter.IssueType]string
	// label returns an aggregate label over rows aliased alias; nil means key = label
	label    func(alias string) sqlb.Expr
	services bool
	time     bool
}

func both(col string) map[filter.IssueType]string {
	return map[filter.IssueType]string{filter.Incident: col, filter.Alert: col}
}

func only(it filter.IssueType, col string) map[filter.IssueType]string {
	return map[filter.IssueType]string{it: col}
}

var dimensions = map[filter.Dimension]dimensionDef{
	filter.UserID: {
		columns: only(filter.Incident, "user_id"),
		label: func(alias string) sqlb.Expr {
			return sqlb.Agg{Fn: "MAX", E: sqlb.C(alias, "user_name")}
		},
	},
	filter.Service: {
		columns: both("pd_service_id"),
		label: func(string) sqlb.Expr {
			return sqlb.Agg{Fn: "MAX", E: sqlb.C(schema.ServicesAlias, schema.ServiceName)}
		},
		services: true,
	},
	filter.IncidentPriority: {
		columns: map[filter.IssueType]string{filter.Incident: "priority", filter.Alert: "incident_priority"},
	},
	filter.IncidentUrgency:        {columns: only(filter.Incident, "urgency")},
	filter.Status:                 {columns: both("status")},
	filter.AlertSeverity:          {columns: only(filter.Alert, "severity")},
	filter.IncidentCreatedAt:      {columns: only(filter.Incident, "created_at"), time: true},
	filter.IncidentResolvedAt:     {columns: only(filter.Incident, "resolved_at"), time: true},
	filter.IncidentAcknowledgedAt: {columns: only(filter.Incident, "acknowledged_at"), time: true},
	filter.AlertCreatedAt:         {columns: only(filter.Alert, "created_at"), time: true},
	filter.AlertResolvedAt:        {columns: only(filter.Alert, "resolved_at"), time: true},
	filter.AlertAcknowledgedAt:    {columns: only(filter.Alert, "acknowledged_at"), time: true},
}

// Supports reports whether dim has a column in the it family
func Supports(dim filter.Dimension, it filter.IssueType) bool {
	_, ok := dimensions[dim].columns[it]
	return ok
}

// Resolve maps dim to its grouping fragments over rows aliased alias
// The interval only matters for time dimensions
func Resolve(dim filter.Dimension, iv filter.Interval, fam *schema.Family, alias string) (Grouping, error) {
	def, ok := dimensions[dim]
	if !ok {
		return Grouping{}, perr.ValidationField("across", "unknown dimension %q", dim)
	}
	name, ok := def.columns[fam.Issue]
	if !ok {
		return Grouping{}, perr.ValidationField("across", "dimension %q is not available for %s", dim, fam.Issue)
	}
	col, ok := fam.Column(name)
	if !ok {
		return Grouping{}, perr.Compilationf("dimension %q maps to unknown column %s.%s", dim, fam.Table, name)
	}
	src := sqlb.C(alias, name)
	g := Grouping{Dim: dim, Column: name, Services: def.services, Time: def.time}
	keyRef, labelRef := sqlb.C("", KeyAlias), sqlb.C("", LabelAlias)

	if def.time {
		tr, err := TruncationFor(iv)
		if err != nil {
			return Grouping{}, err
		}
		g.Truncation = tr
		g.Select = []sqlb.Field{
			{E: sqlb.BucketStart{E: src, Unit: tr.Unit}, As: KeyAlias},
			{E: sqlb.BucketLabel{E: src, Unit: tr.Unit}, As: LabelAlias},
		}
		g.GroupBy = []sqlb.Expr{keyRef, labelRef}
		return g, nil
	}

	var key sqlb.Expr = src
	switch {
	case col.Type == sqlb.UUID:
		key = sqlb.AsText{E: src}
	case col.Fold:
		key = sqlb.Lower{E: src}
	}
	if def.label == nil {
		g.Select = []sqlb.Field{{E: key, As: KeyAlias}, {E: key, As: LabelAlias}}
		g.GroupBy = []sqlb.Expr{keyRef, labelRef}
		return g, nil
	}
	g.Select = []sqlb.Field{{E: key, As: KeyAlias}, {E: def.label(alias), As: LabelAlias}}
	g.GroupBy = []sqlb.Expr{keyRef}
	return g, nil
}

// ResolveOrder picks the ORDER BY for a grouped query
// Time groupings always order by key, ascending only when the first sort entry names
// the dimension ascending. Otherwise the first sort entry wins: a metric name orders by
// that metric and the grouping dimension orders by key, else the calculation default
// applies. Key ascending is the final tie-break.
func ResolveOrder(sort []filter.SortField, calc Calculation, g Grouping, it filter.IssueType) ([]sqlb.Order, error) {
	if len(sort) > 0 && sort[0].Field == string(filter.UserID) && it == filter.Alert {
		return nil, perr.ValidationField("sort", "alerts cannot be sorted by user")
	}
	if g.Time {
		asc := len(sort) > 0 && sort[0].Field == string(g.Dim) && !sort[0].Desc
		return []sqlb.Order{g.KeyOrder(!asc)}, nil
	}
	var primary sqlb.Order
	switch {
	case len(sort) > 0 && metricNamed(calc, sort[0].Field):
		m, _ := calc.Metric(sort[0].Field)
		primary = sqlb.Order{E: sqlb.C("", m.Alias), Desc: sort[0].Desc}
	case len(sort) > 0 && sort[0].Field == string(g.Dim):
		return []sqlb.Order{g.KeyOrder(sort[0].Desc)}, nil
	default:
		primary = calc.Default
	}
	return []sqlb.Order{primary, g.KeyOrder(false)}, nil
}

func metricNamed(c Calculation, name string) bool {
	_, ok := c.Metric(name)
	return ok
}
