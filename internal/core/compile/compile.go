// Package compile turns a filter into column predicates over one entity family
//
// Only columns on the family's allow-list are ever emitted. Unknown or empty
// inputs are skipped, while combinations the issue type cannot serve are refused
// with a validation error before any predicate is built.
package compile

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/schema"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

// UserResolver turns an org unit scope into a subquery selecting user ids
type UserResolver interface {
	ResolveUsersForScope(ctx context.Context, tenant string, scope filter.UserScope) (sqlb.Raw, error)
}

// Compiler builds predicates for a dialect
type Compiler struct {
	Users   UserResolver
	Dialect sqlb.Dialect
}

// New returns a Compiler
func New(users UserResolver, d sqlb.Dialect) *Compiler {
	return &Compiler{Users: users, Dialect: d}
}

type set struct {
	field  string
	values func(filter.Filter) []string
	column map[filter.IssueType]string
}

var sets = []set{
	{"priorities", func(f filter.Filter) []string { return f.Priorities },
		map[filter.IssueType]string{filter.Incident: "priority", filter.Alert: "incident_priority"}},
	{"urgencies", func(f filter.Filter) []string { return f.Urgencies },
		map[filter.IssueType]string{filter.Incident: "urgency"}},
	{"statuses", func(f filter.Filter) []string { return f.Statuses },
		map[filter.IssueType]string{filter.Incident: "status", filter.Alert: "status"}},
	{"severities", func(f filter.Filter) []string { return f.Severities },
		map[filter.IssueType]string{filter.Alert: "severity"}},
	{"pd_service_ids", func(f filter.Filter) []string { return f.ServiceIDs },
		map[filter.IssueType]string{filter.Incident: "pd_service_id", filter.Alert: "pd_service_id"}},
	{"user_ids", func(f filter.Filter) []string { return f.UserIDs },
		map[filter.IssueType]string{filter.Incident: "user_id"}},
	{"user_names", func(f filter.Filter) []string { return f.UserNames },
		map[filter.IssueType]string{filter.Incident: "user_name"}},
}

var rangeColumns = []string{"created_at", "resolved_at", "acknowledged_at"}

// Compile returns the predicate conjunction for f over fam, binding values into p
func (c *Compiler) Compile(ctx context.Context, tenant string, f filter.Filter, fam *schema.Family, p *sqlb.Params) ([]sqlb.Pred, error) {
	if err := Check(f); err != nil {
		return nil, err
	}
	if fam == nil || fam.Issue != f.IssueType {
		return nil, perr.Compilationf("no table family for issue type %q", f.IssueType)
	}
	b := &builder{fam: fam, p: p}

	for _, col := range rangeColumns {
		b.timeRange(col, f.Range(col))
	}
	for _, s := range sets {
		if vs := s.values(f); len(vs) > 0 {
			if err := b.match(s.field, s.column[f.IssueType], vs); err != nil {
				return nil, err
			}
		}
	}
	for _, k := range slices.Sorted(maps.Keys(f.Conditions)) {
		if err := b.match("conditions."+k, k, f.Conditions[k]); err != nil {
			return nil, err
		}
	}
	for _, k := range slices.Sorted(maps.Keys(f.MissingFields)) {
		b.missing(k, f.MissingFields[k])
	}
	if f.OfficeHours != nil {
		if err := c.officeHours(b, *f.OfficeHours); err != nil {
			return nil, err
		}
	}
	if f.UserScope != nil {
		if err := c.userScope(ctx, tenant, b, *f.UserScope); err != nil {
			return nil, err
		}
	}
	return b.preds, nil
}

// CompileScope returns the predicates for one expanded scope over fam, binding into p
// They are ANDed with the filter's own predicates, so a scope narrows a caller constraint
// on the same column and never replaces it
func (c *Compiler) CompileScope(it filter.IssueType, scope map[string]any, fam *schema.Family, p *sqlb.Params) ([]sqlb.Pred, error) {
	if err := CheckIssueRules(filter.Filter{IssueType: it, Conditions: scope}); err != nil {
		return nil, err
	}
	if fam == nil || fam.Issue != it {
		return nil, perr.Compilationf("no table family for issue type %q", it)
	}
	b := &builder{fam: fam, p: p}
	for _, k := range slices.Sorted(maps.Keys(scope)) {
		if err := b.match("scope."+k, k, scope[k]); err != nil {
			return nil, err
		}
	}
	return b.preds, nil
}

type builder struct {
	fam   *schema.Family
	p     *sqlb.Params
	preds []sqlb.Pred
}

func (b *builder) add(p sqlb.Pred) { b.preds = append(b.preds, p) }

func (b *builder) timeRange(col string, r *filter.TimeRange) {
	if r.Empty() || !b.fam.Allows(col) {
		return
	}
	if r.From != nil {
		op := ">"
		if r.FromInclusive {
			op = ">="
		}
		ref := b.p.Bind(col+"_from", sqlb.Timestamptz, r.From.UTC())
		b.add(sqlb.Cmp{L: b.fam.Col(col), Op: op, R: ref})
	}
	if r.To != nil {
		ref := b.p.Bind(col+"_to", sqlb.Timestamptz, r.To.UTC())
		b.add(sqlb.Cmp{L: b.fam.Col(col), Op: "<", R: ref})
	}
}

// match emits equality for scalars and membership for collections
func (b *builder) match(field, name string, v any) error {
	col, ok := b.fam.Column(name)
	if !ok || v == nil {
		return nil
	}
	t, val, isColl, err := collection(field, v)
	if err != nil {
		return err
	}
	if isColl {
		if val == nil {
			return nil
		}
		lhs, t, val, err := coerce(field, b.fam.Col(name), col, t.Elem(), val)
		if err != nil {
			return err
		}
		ref := b.p.Bind(name, arrayOf(t), val)
		if col.Type.IsArray() {
			b.add(sqlb.Overlap{Arr: lhs, R: ref})
		} else {
			b.add(sqlb.In{L: lhs, R: ref})
		}
		return nil
	}

	t, val, err = scalar(field, v)
	if err != nil {
		return err
	}
	lhs, t, val, err := coerce(field, b.fam.Col(name), col, t, val)
	if err != nil {
		return err
	}
	ref := b.p.Bind(name, t, val)
	if col.Type.IsArray() {
		b.add(sqlb.Contains{Arr: lhs, V: ref})
	} else {
		b.add(sqlb.Eq(lhs, ref))
	}
	return nil
}

// coerce reconciles the inferred element type of a value with its column
// val is a string, an int64 or the slice forms of those
func coerce(field string, lhs sqlb.Expr, col schema.Column, t sqlb.Type, val any) (sqlb.Expr, sqlb.Type, any, error) {
	elem := col.Type
	if elem.IsArray() {
		elem = elem.Elem()
	}
	stringy := t == sqlb.Text || t == sqlb.UUID
	numeric := t == sqlb.Int || t == sqlb.Bigint || t == sqlb.Float

	switch {
	case col.Fold && stringy:
		switch x := val.(type) {
		case string:
			val = fold(x)
		case []string:
			val = foldAll(x)
		}
		return sqlb.Lower{E: lhs}, sqlb.Text, val, nil
	case elem == sqlb.Text && stringy:
		return lhs, sqlb.Text, val, nil
	case elem == sqlb.UUID && t == sqlb.UUID:
		return lhs, sqlb.UUID, val, nil
	case elem == sqlb.UUID && t == sqlb.Text && !col.Type.IsArray():
		return sqlb.AsText{E: lhs}, sqlb.Text, val, nil
	case (elem == sqlb.Int || elem == sqlb.Bigint) && numeric:
		return lhs, t, val, nil
	}
	return nil, 0, nil, perr.Compilationf("%s: cannot compare %s column %s with the given value", field, col.Type.String(), col.Name)
}

func arrayOf(t sqlb.Type) sqlb.Type {
	switch t {
	case sqlb.UUID:
		return sqlb.UUIDArray
	case sqlb.Int, sqlb.Bigint:
		return sqlb.BigintArray
	}
	return sqlb.TextArray
}

func (b *builder) missing(name string, isMissing bool) {
	col, ok := b.fam.Column(name)
	if !ok {
		return
	}
	if col.Type.IsArray() {
		b.add(sqlb.ArrayEmpty{E: b.fam.Col(name), Not: !isMissing})
		return
	}
	b.add(sqlb.IsNull{E: b.fam.Col(name), Not: !isMissing})
}

// officeHours emits one local time window per UTC calendar day in [From, To]
func (c *Compiler) officeHours(b *builder, oh filter.OfficeHours) error {
	if b.fam.TimeZone == "" {
		return perr.Compilationf("office hours: %s has no time zone column", b.fam.Table)
	}
	if c.Dialect != sqlb.Postgres {
		return perr.Compilationf("office hours: per-row time zones are not supported by %s", c.Dialect)
	}
	// shape and span were checked by Check
	start, _ := clock(oh.Start)
	end, _ := clock(oh.End)
	if end <= start {
		end += 24 * time.Hour
	}

	local := sqlb.LocalTime{E: b.fam.Col("created_at"), Zone: b.fam.Col(b.fam.TimeZone)}
	first, last := utcDay(oh.From), utcDay(oh.To)

	var windows sqlb.Or
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		tag := "oh_" + day.Format("20060102")
		lo := b.p.Bind(tag+"_from", sqlb.Timestamp, day.Add(start))
		hi := b.p.Bind(tag+"_to", sqlb.Timestamp, day.Add(end))
		windows = append(windows, sqlb.And{
			sqlb.Cmp{L: local, Op: ">=", R: lo},
			sqlb.Cmp{L: local, Op: "<", R: hi},
		})
	}
	if oh.Exclude {
		b.add(sqlb.Not{P: windows})
		return nil
	}
	b.add(windows)
	return nil
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func clock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (c *Compiler) userScope(ctx context.Context, tenant string, b *builder, us filter.UserScope) error {
	if !b.fam.Allows(userCol) {
		return nil
	}
	if c.Users == nil {
		return perr.Compilationf("user scope given but no identity resolver is configured")
	}
	raw, err := c.Users.ResolveUsersForScope(ctx, tenant, us)
	if err != nil {
		return err
	}
	frag, err := raw.Bind(b.p, "user_scope")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeCompilation, "bind user scope")
	}
	b.add(sqlb.SubqueryIn{L: b.fam.Col(userCol), Sub: frag})
	return nil
}
