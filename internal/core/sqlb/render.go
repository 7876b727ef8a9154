package sqlb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Dialect selects the text a query tree renders to
type Dialect uint8

// Dialects
const (
	Postgres Dialect = iota
	ClickHouse
)

// String returns the config name of d
func (d Dialect) String() string {
	if d == ClickHouse {
		return "clickhouse"
	}
	return "postgres"
}

// ParseDialect maps a config value to a Dialect
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "postgres", "pg":
		return Postgres, nil
	case "clickhouse", "ch":
		return ClickHouse, nil
	}
	return Postgres, fmt.Errorf("sqlb: unknown dialect %q", s)
}

// UnsupportedError reports a construct the dialect cannot express
type UnsupportedError struct {
	Dialect Dialect
	What    string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("sqlb: %s is not supported by %s", e.What, e.Dialect)
}

// Render turns q into SQL text plus positional args drawn from p
func Render(d Dialect, q Query, p *Params) (string, []any, error) {
	r := newRenderer(d, p)
	r.query(q)
	return r.done()
}

// RenderPred renders a single predicate; used by tests and debug logging
func RenderPred(d Dialect, pr Pred, p *Params) (string, []any, error) {
	r := newRenderer(d, p)
	r.pred(pr)
	return r.done()
}

type renderer struct {
	d    Dialect
	p    *Params
	sb   strings.Builder
	args []any
	pos  map[string]int
	err  error
}

func newRenderer(d Dialect, p *Params) *renderer {
	return &renderer{d: d, p: p, pos: map[string]int{}}
}

func (r *renderer) done() (string, []any, error) {
	if r.err != nil {
		return "", nil, r.err
	}
	return r.sb.String(), r.args, nil
}

func (r *renderer) w(s ...string) {
	for _, x := range s {
		r.sb.WriteString(x)
	}
}

func (r *renderer) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *renderer) unsupported(what string) {
	r.fail(&UnsupportedError{Dialect: r.d, What: what})
}

// ref writes a placeholder; postgres reuses the position of a repeated name
func (r *renderer) ref(x Ref) {
	prm, ok := r.p.lookup(x.Name)
	if !ok {
		r.fail(fmt.Errorf("sqlb: unbound parameter %q", x.Name))
		return
	}
	if r.d == ClickHouse {
		r.args = append(r.args, prm.Value)
		r.w("?")
		return
	}
	n, seen := r.pos[x.Name]
	if !seen {
		r.args = append(r.args, prm.Value)
		n = len(r.args)
		r.pos[x.Name] = n
	}
	r.w("$", strconv.Itoa(n), "::", prm.Type.pgName())
}

func (r *renderer) expr(e Expr) {
	switch x := e.(type) {
	case Col:
		if x.Table != "" {
			r.w(x.Table, ".")
		}
		r.w(x.Name)
	case Ref:
		r.ref(x)
	case Lower:
		r.w("lower(")
		r.expr(x.E)
		r.w(")")
	case AsText:
		if r.d == ClickHouse {
			r.w("toString(")
			r.expr(x.E)
			r.w(")")
			return
		}
		r.w("CAST(")
		r.expr(x.E)
		r.w(" AS text)")
	case AsTextArray:
		if r.d == ClickHouse {
			r.w("arrayMap(x -> toString(x), ")
			r.expr(x.E)
			r.w(")")
			return
		}
		r.w("CAST(")
		r.expr(x.E)
		r.w(" AS text[])")
	case AsFloat:
		if r.d == ClickHouse {
			r.w("toFloat64(")
			r.expr(x.E)
			r.w(")")
			return
		}
		r.w("CAST(")
		r.expr(x.E)
		r.w(" AS double precision)")
	case Agg:
		switch x.Fn {
		case "COUNT", "MIN", "MAX", "AVG", "SUM":
		default:
			r.fail(fmt.Errorf("sqlb: unknown aggregate %q", x.Fn))
			return
		}
		r.w(x.Fn, "(")
		if x.Distinct {
			r.w("DISTINCT ")
		}
		r.expr(x.E)
		r.w(")")
	case CountAll:
		r.w("COUNT(*)")
	case Percentile:
		p := strconv.FormatFloat(x.P, 'f', -1, 64)
		if r.d == ClickHouse {
			r.w("quantileExactInclusive(", p, ")(")
			r.expr(x.E)
			r.w(")")
			return
		}
		r.w("percentile_cont(", p, ") WITHIN GROUP (ORDER BY ")
		r.expr(x.E)
		r.w(")")
	case BucketStart:
		if r.d == ClickHouse {
			r.w("toInt64(toUnixTimestamp(")
			r.chStart(x.E, x.Unit)
			r.w("))")
			return
		}
		r.w("CAST(EXTRACT(EPOCH FROM ")
		r.pgTrunc(x.E, x.Unit)
		r.w(") AS bigint)")
	case BucketLabel:
		r.label(x)
	case LocalTime:
		if r.d == ClickHouse {
			r.unsupported("per-row time zone conversion")
			return
		}
		r.w("(")
		r.expr(x.E)
		r.w(" AT TIME ZONE ")
		r.expr(x.Zone)
		r.w(")")
	case nil:
		r.fail(fmt.Errorf("sqlb: nil expression"))
	default:
		r.fail(fmt.Errorf("sqlb: unknown expression %T", e))
	}
}

var pgLabel = map[Unit]string{
	UnitDay:     "DD-MM-YYYY",
	UnitWeek:    "IW-IYYY",
	UnitMonth:   "MM-YYYY",
	UnitQuarter: "Q-YYYY",
	UnitYear:    "YYYY",
}

func (r *renderer) pgTrunc(e Expr, u Unit) {
	if _, ok := pgLabel[u]; !ok {
		r.fail(fmt.Errorf("sqlb: unknown unit %q", u))
		return
	}
	r.w("date_trunc('", string(u), "', ")
	r.expr(e)
	r.w(" AT TIME ZONE 'UTC')")
}

func (r *renderer) chStart(e Expr, u Unit) {
	r.w("toDateTime(")
	switch u {
	case UnitDay:
		r.w("toStartOfDay(")
	case UnitWeek:
		r.w("toStartOfWeek(")
	case UnitMonth:
		r.w("toStartOfMonth(")
	case UnitQuarter:
		r.w("toStartOfQuarter(")
	case UnitYear:
		r.w("toStartOfYear(")
	default:
		r.fail(fmt.Errorf("sqlb: unknown unit %q", u))
		return
	}
	r.expr(e)
	if u == UnitWeek {
		r.w(", 1") // iso weeks start monday
	}
	r.w(", 'UTC'), 'UTC')")
}

func (r *renderer) label(x BucketLabel) {
	if r.d == Postgres {
		r.w("to_char(")
		r.pgTrunc(x.E, x.Unit)
		r.w(", '", pgLabel[x.Unit], "')")
		return
	}
	switch x.Unit {
	case UnitWeek:
		r.w("concat(leftPad(toString(toISOWeek(")
		r.chStart(x.E, x.Unit)
		r.w(")), 2, '0'), '-', toString(toISOYear(")
		r.chStart(x.E, x.Unit)
		r.w(")))")
	case UnitQuarter:
		r.w("concat(toString(toQuarter(")
		r.chStart(x.E, x.Unit)
		r.w(")), '-', toString(toYear(")
		r.chStart(x.E, x.Unit)
		r.w(")))")
	default:
		f := map[Unit]string{UnitDay: "%d-%m-%Y", UnitMonth: "%m-%Y", UnitYear: "%Y"}[x.Unit]
		r.w("formatDateTime(")
		r.chStart(x.E, x.Unit)
		r.w(", '", f, "', 'UTC')")
	}
}

var cmpOps = map[string]bool{"=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true}

func (r *renderer) pred(p Pred) {
	switch x := p.(type) {
	case Cmp:
		if !cmpOps[x.Op] {
			r.fail(fmt.Errorf("sqlb: unknown operator %q", x.Op))
			return
		}
		r.expr(x.L)
		r.w(" ", x.Op, " ")
		r.expr(x.R)
	case In:
		if r.d == ClickHouse {
			r.w("has(")
			r.ref(x.R)
			r.w(", ")
			r.expr(x.L)
			r.w(")")
			return
		}
		r.expr(x.L)
		r.w(" = ANY(")
		r.ref(x.R)
		r.w(")")
	case Contains:
		if r.d == ClickHouse {
			r.w("has(")
			r.expr(x.Arr)
			r.w(", ")
			r.ref(x.V)
			r.w(")")
			return
		}
		r.ref(x.V)
		r.w(" = ANY(")
		r.expr(x.Arr)
		r.w(")")
	case Overlap:
		if r.d == ClickHouse {
			r.w("hasAny(")
			r.expr(x.Arr)
			r.w(", ")
			r.ref(x.R)
			r.w(")")
			return
		}
		r.expr(x.Arr)
		r.w(" && ")
		r.ref(x.R)
	case IsNull:
		r.expr(x.E)
		if x.Not {
			r.w(" IS NOT NULL")
		} else {
			r.w(" IS NULL")
		}
	case ArrayEmpty:
		r.arrayEmpty(x)
	case And:
		r.junction(x, " AND ", "TRUE")
	case Or:
		r.junction(x, " OR ", "FALSE")
	case Not:
		r.w("NOT (")
		r.pred(x.P)
		r.w(")")
	case SubqueryIn:
		r.expr(x.L)
		r.w(" IN (")
		for i, part := range x.Sub.Parts {
			r.w(part)
			if i < len(x.Sub.Refs) {
				r.ref(x.Sub.Refs[i])
			}
		}
		r.w(")")
	case nil:
		r.fail(fmt.Errorf("sqlb: nil predicate"))
	default:
		r.fail(fmt.Errorf("sqlb: unknown predicate %T", p))
	}
}

func (r *renderer) arrayEmpty(x ArrayEmpty) {
	if r.d == ClickHouse {
		if x.Not {
			r.w("notEmpty(")
		} else {
			r.w("empty(")
		}
		r.expr(x.E)
		r.w(")")
		return
	}
	if x.Not {
		r.w("cardinality(")
		r.expr(x.E)
		r.w(") > 0")
		return
	}
	r.w("(")
	r.expr(x.E)
	r.w(" IS NULL OR cardinality(")
	r.expr(x.E)
	r.w(") = 0)")
}

func (r *renderer) junction(ps []Pred, sep, empty string) {
	switch len(ps) {
	case 0:
		r.w(empty)
		return
	case 1:
		r.pred(ps[0])
		return
	}
	r.w("(")
	for i, p := range ps {
		if i > 0 {
			r.w(sep)
		}
		r.pred(p)
	}
	r.w(")")
}

func (r *renderer) query(q Query) {
	switch x := q.(type) {
	case *Select:
		r.sel(x)
	case *Union:
		if len(x.Parts) == 0 {
			r.fail(fmt.Errorf("sqlb: empty union"))
			return
		}
		sep := " UNION "
		switch {
		case x.All:
			sep = " UNION ALL "
		case r.d == ClickHouse:
			sep = " UNION DISTINCT "
		}
		for i, s := range x.Parts {
			if i > 0 {
				r.w(sep)
			}
			r.sel(s)
		}
	case Count:
		if r.d == ClickHouse {
			r.w("SELECT toInt64(COUNT(*)) AS total FROM (")
		} else {
			r.w("SELECT COUNT(*) AS total FROM (")
		}
		r.query(x.Q)
		r.w(") c")
	case nil:
		r.fail(fmt.Errorf("sqlb: nil query"))
	default:
		r.fail(fmt.Errorf("sqlb: unknown query %T", q))
	}
}

func (r *renderer) sel(s *Select) {
	if s == nil || len(s.Fields) == 0 || s.From == nil {
		r.fail(fmt.Errorf("sqlb: select needs fields and a source"))
		return
	}
	r.w("SELECT ")
	for i, f := range s.Fields {
		if i > 0 {
			r.w(", ")
		}
		r.expr(f.E)
		if f.As != "" {
			r.w(" AS ", f.As)
		}
	}
	r.w(" FROM ")
	r.source(s.From)
	for _, j := range s.Joins {
		r.w(" LEFT JOIN ")
		r.source(j.T)
		r.w(" ON ")
		r.pred(j.On)
	}
	if len(s.Where) > 0 {
		r.w(" WHERE ")
		for i, p := range s.Where {
			if i > 0 {
				r.w(" AND ")
			}
			r.pred(p)
		}
	}
	if len(s.GroupBy) > 0 {
		r.w(" GROUP BY ")
		for i, e := range s.GroupBy {
			if i > 0 {
				r.w(", ")
			}
			r.expr(e)
		}
	}
	if len(s.OrderBy) > 0 {
		r.w(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				r.w(", ")
			}
			r.expr(o.E)
			if o.Desc {
				r.w(" DESC")
			} else {
				r.w(" ASC")
			}
		}
	}
	if s.Limit > 0 {
		r.w(" LIMIT ", strconv.Itoa(s.Limit))
	}
	if s.Offset > 0 {
		r.w(" OFFSET ", strconv.Itoa(s.Offset))
	}
}

func (r *renderer) source(src Source) {
	switch x := src.(type) {
	case Table:
		if x.Schema != "" {
			r.w(pgx.Identifier{x.Schema, x.Name}.Sanitize())
		} else {
			r.w(pgx.Identifier{x.Name}.Sanitize())
		}
		if x.Alias != "" {
			r.w(" ", x.Alias)
		}
	case Subquery:
		r.w("(")
		r.query(x.Q)
		r.w(")")
		if x.Alias != "" {
			r.w(" ", x.Alias)
		}
	default:
		r.fail(fmt.Errorf("sqlb: unknown source %T", src))
	}
}

// Columns lists every column referenced by p, in render order
func Columns(p Pred) []Col {
	var out []Col
	var walkE func(Expr)
	walkE = func(e Expr) {
		switch x := e.(type) {
		case Col:
			out = append(out, x)
		case Lower:
			walkE(x.E)
		case AsText:
			walkE(x.E)
		case AsTextArray:
			walkE(x.E)
		case AsFloat:
			walkE(x.E)
		case Agg:
			walkE(x.E)
		case Percentile:
			walkE(x.E)
		case BucketStart:
			walkE(x.E)
		case BucketLabel:
			walkE(x.E)
		case LocalTime:
			walkE(x.E)
			walkE(x.Zone)
		}
	}
	var walkP func(Pred)
	walkP = func(p Pred) {
		switch x := p.(type) {
		case Cmp:
			walkE(x.L)
			walkE(x.R)
		case In:
			walkE(x.L)
		case Contains:
			walkE(x.Arr)
		case Overlap:
			walkE(x.Arr)
		case IsNull:
			walkE(x.E)
		case ArrayEmpty:
			walkE(x.E)
		case And:
			for _, y := range x {
				walkP(y)
			}
		case Or:
			for _, y := range x {
				walkP(y)
			}
		case Not:
			walkP(x.P)
		case SubqueryIn:
			walkE(x.L)
		}
	}
	walkP(p)
	return out
}
