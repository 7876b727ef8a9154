// Package compose assembles complete list and aggregate queries from a filter
//
// Every query reads a union of candidate row sets, one per scope, each the filter's
// predicates ANDed with that scope's and compiled on its own parameter sink. UNION
// (distinct) is used for lists and aggregates alike, so an entity matched by several
// scopes is counted once.
package compose

import (
	"context"
	"fmt"
	"strconv"

	"github.com/linuxautomates/gitsei-sub026/internal/core/compile"
	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/plan"
	"github.com/linuxautomates/gitsei-sub026/internal/core/schema"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

// rowsAlias names the candidate union in the outer query
const rowsAlias = "u"

// Composer builds queries; it holds no per-request state
type Composer struct {
	compiler *compile.Compiler
}

// New returns a Composer compiling predicates with c
func New(c *compile.Compiler) *Composer { return &Composer{compiler: c} }

// Composed is an ordered, unwindowed query with its bindings
type Composed struct {
	Query  *sqlb.Select
	Params *sqlb.Params
	Family *schema.Family
	// Types holds the decoded type of each projected column, in order
	Types []sqlb.Type

	// aggregate only
	Calc     plan.Calculation
	Grouping plan.Grouping
}

// Page returns the query windowed to one page
func (c *Composed) Page(page, size int) *sqlb.Select {
	return c.Query.Window(size, page*size)
}

// Count returns the total row count query of the unwindowed result
func (c *Composed) Count() sqlb.Query {
	return sqlb.Count{Q: c.Query.Unordered()}
}

// Columns returns the output column names in projection order
func (c *Composed) Columns() []string {
	out := make([]string, len(c.Query.Fields))
	for i, f := range c.Query.Fields {
		out[i] = f.As
		if out[i] == "" {
			if col, ok := f.E.(sqlb.Col); ok {
				out[i] = col.Name
			}
		}
	}
	return out
}

// Aggregate composes the grouped query for f.Across
func (c *Composer) Aggregate(ctx context.Context, tenant string, f filter.Filter, scopes []map[string]any) (*Composed, error) {
	if err := compile.Check(f); err != nil {
		return nil, err
	}
	fam, err := schema.For(f.IssueType)
	if err != nil {
		return nil, err
	}
	g, err := plan.Resolve(f.Across, f.IntervalOrDefault(), fam, rowsAlias)
	if err != nil {
		return nil, err
	}
	calc, err := plan.PlanCalculation(f.CalculationOrDefault(), fam, rowsAlias)
	if err != nil {
		return nil, err
	}
	order, err := plan.ResolveOrder(f.Sort, calc, g, f.IssueType)
	if err != nil {
		return nil, err
	}
	rows, params, err := c.candidates(ctx, tenant, f, fam, scopes)
	if err != nil {
		return nil, err
	}
	where, err := pinned(f, fam, params)
	if err != nil {
		return nil, err
	}

	keyType := sqlb.Text
	if g.Time {
		keyType = sqlb.Bigint
	}
	fields := append([]sqlb.Field(nil), g.Select...)
	types := []sqlb.Type{keyType, sqlb.Text}
	for _, m := range calc.Metrics {
		fields = append(fields, sqlb.Field{E: m.Expr, As: m.Alias})
		types = append(types, sqlb.Float)
	}

	q := &sqlb.Select{
		Fields:  fields,
		From:    sqlb.Subquery{Q: rows, Alias: rowsAlias},
		Where:   where,
		GroupBy: g.GroupBy,
		OrderBy: order,
	}
	if g.Services {
		q.Joins = []sqlb.Join{serviceJoin(tenant)}
	}
	return &Composed{Query: q, Params: params, Family: fam, Types: types, Calc: calc, Grouping: g}, nil
}

// List composes the row query for f
// Sorting honours the first sort entry when it names a family column, else newest first
func (c *Composer) List(ctx context.Context, tenant string, f filter.Filter, scopes []map[string]any) (*Composed, error) {
	if err := compile.Check(f); err != nil {
		return nil, err
	}
	fam, err := schema.For(f.IssueType)
	if err != nil {
		return nil, err
	}
	rows, params, err := c.candidates(ctx, tenant, f, fam, scopes)
	if err != nil {
		return nil, err
	}
	where, err := pinned(f, fam, params)
	if err != nil {
		return nil, err
	}

	fields := make([]sqlb.Field, 0, len(fam.Columns))
	types := make([]sqlb.Type, 0, len(fam.Columns))
	for _, col := range fam.Columns {
		src := sqlb.C(rowsAlias, col.Name)
		switch col.Type {
		case sqlb.UUID:
			fields = append(fields, sqlb.Field{E: sqlb.AsText{E: src}, As: col.Name})
			types = append(types, sqlb.Text)
		case sqlb.UUIDArray, sqlb.BigintArray:
			fields = append(fields, sqlb.Field{E: sqlb.AsTextArray{E: src}, As: col.Name})
			types = append(types, sqlb.TextArray)
		default:
			fields = append(fields, sqlb.Field{E: src})
			types = append(types, col.Type)
		}
	}

	order := []sqlb.Order{{E: sqlb.C(rowsAlias, "created_at"), Desc: true}}
	if len(f.Sort) > 0 && fam.Allows(f.Sort[0].Field) {
		order = []sqlb.Order{{E: sqlb.C(rowsAlias, f.Sort[0].Field), Desc: f.Sort[0].Desc}}
	}
	order = append(order, sqlb.Order{E: sqlb.C(rowsAlias, "id")})

	q := &sqlb.Select{
		Fields:  fields,
		From:    sqlb.Subquery{Q: rows, Alias: rowsAlias},
		Where:   where,
		OrderBy: order,
	}
	return &Composed{Query: q, Params: params, Family: fam, Types: types}, nil
}

// candidates compiles one row set per scope, or one for f alone
// each candidate gets a fresh predicate list and a prefixed sink before merging
func (c *Composer) candidates(ctx context.Context, tenant string, f filter.Filter, fam *schema.Family, scopes []map[string]any) (*sqlb.Union, *sqlb.Params, error) {
	n := max(len(scopes), 1)
	all := sqlb.NewParams("")
	u := &sqlb.Union{Parts: make([]*sqlb.Select, 0, n)}
	for i := range n {
		prefix := ""
		if n > 1 {
			prefix = fmt.Sprintf("s%d_", i)
		}
		p := sqlb.NewParams(prefix)
		preds, err := c.compiler.Compile(ctx, tenant, f, fam, p)
		if err != nil {
			return nil, nil, err
		}
		if len(scopes) > 0 {
			sp, err := c.compiler.CompileScope(f.IssueType, scopes[i], fam, p)
			if err != nil {
				return nil, nil, err
			}
			preds = append(preds, sp...)
		}
		if err := all.Merge(p); err != nil {
			return nil, nil, perr.Wrap(err, perr.ErrorCodeCompilation, "merge scope parameters")
		}
		u.Parts = append(u.Parts, &sqlb.Select{
			Fields: rowFields(fam),
			From:   fam.Source(tenant),
			Where:  preds,
		})
	}
	return u, all, nil
}

// pinned matches outer rows against the key expression of the pinned grouping
// The key is compared as the grouping returned it, so no value normalisation applies
func pinned(f filter.Filter, fam *schema.Family, p *sqlb.Params) ([]sqlb.Pred, error) {
	if f.Pin == nil {
		return nil, nil
	}
	g, err := plan.Resolve(f.Pin.Dim, f.IntervalOrDefault(), fam, rowsAlias)
	if err != nil {
		return nil, err
	}
	key := g.Select[0].E
	switch {
	case f.Pin.Null:
		return []sqlb.Pred{sqlb.IsNull{E: key}}, nil
	case g.Time:
		epoch, err := strconv.ParseInt(f.Pin.Key, 10, 64)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeCompilation, "bucket key %q is not an epoch", f.Pin.Key)
		}
		return []sqlb.Pred{sqlb.Eq(key, p.Bind("pin_key", sqlb.Bigint, epoch))}, nil
	default:
		return []sqlb.Pred{sqlb.Eq(key, p.Bind("pin_key", sqlb.Text, f.Pin.Key))}, nil
	}
}

func rowFields(fam *schema.Family) []sqlb.Field {
	out := make([]sqlb.Field, len(fam.Columns))
	for i, col := range fam.Columns {
		out[i] = sqlb.Field{E: fam.Col(col.Name)}
	}
	return out
}

func serviceJoin(tenant string) sqlb.Join {
	return sqlb.Join{
		T:  schema.Services(tenant),
		On: sqlb.Eq(sqlb.C(schema.ServicesAlias, "id"), sqlb.C(rowsAlias, "pd_service_id")),
	}
}
