package sqlb

import "fmt"

// Expr is a value expression
type Expr interface{ expr() }

// Pred is a boolean expression usable in WHERE
type Pred interface{ pred() }

// Query is a complete statement usable as a subquery
type Query interface{ query() }

// Col references a column, optionally qualified by a table alias
type Col struct {
	Table string
	Name  string
}

// Ref references a bound parameter by name
type Ref struct{ Name string }

// Lower is lower(E)
type Lower struct{ E Expr }

// AsText casts E to text
type AsText struct{ E Expr }

// AsTextArray casts an array to an array of text
type AsTextArray struct{ E Expr }

// AsFloat casts E to double precision
type AsFloat struct{ E Expr }

// Agg is an aggregate function: COUNT, MIN, MAX, AVG
type Agg struct {
	Fn       string
	E        Expr
	Distinct bool
}

// CountAll is COUNT(*)
type CountAll struct{}

// Percentile is the interpolated order statistic of E at P
type Percentile struct {
	E Expr
	P float64
}

// Unit is a time bucket granularity
type Unit string

// Units
const (
	UnitDay     Unit = "day"
	UnitWeek    Unit = "week"
	UnitMonth   Unit = "month"
	UnitQuarter Unit = "quarter"
	UnitYear    Unit = "year"
)

// BucketStart is the epoch seconds of the UTC start of the bucket holding E
type BucketStart struct {
	E    Expr
	Unit Unit
}

// BucketLabel is the formatted UTC bucket holding E
type BucketLabel struct {
	E    Expr
	Unit Unit
}

// LocalTime is E converted to the wall clock of the zone named by Zone
type LocalTime struct {
	E    Expr
	Zone Expr
}

// Cmp compares L and R with Op (=, <>, <, <=, >, >=)
type Cmp struct {
	L  Expr
	Op string
	R  Expr
}

// In is membership of L in the array parameter R
type In struct {
	L Expr
	R Ref
}

// Contains is membership of the scalar parameter V in the array column Arr
type Contains struct {
	Arr Expr
	V   Ref
}

// Overlap is true when the array column Arr shares an element with the array parameter R
type Overlap struct {
	Arr Expr
	R   Ref
}

// IsNull is E IS NULL, or IS NOT NULL when Not
type IsNull struct {
	E   Expr
	Not bool
}

// ArrayEmpty is true for a null or empty array column, or the inverse when Not
type ArrayEmpty struct {
	E   Expr
	Not bool
}

// And is a conjunction; empty is true
type And []Pred

// Or is a disjunction; empty is false
type Or []Pred

// Not negates P
type Not struct{ P Pred }

// Raw is trusted SQL text from a collaborator; each ? is replaced by the next of Args
type Raw struct {
	SQL  string
	Args []Arg
}

// Arg is a typed value for a Raw placeholder
type Arg struct {
	Type  Type
	Value any
}

// Fragment is a Raw whose arguments were bound into a Params sink
type Fragment struct {
	Parts []string
	Refs  []Ref
}

// SubqueryIn is L IN (Sub)
type SubqueryIn struct {
	L   Expr
	Sub Fragment
}

// Field is one projected expression
type Field struct {
	E  Expr
	As string
}

// Order is one ORDER BY entry
type Order struct {
	E    Expr
	Desc bool
}

// Table is a tenant-scoped table; Schema and Name are quoted on render
type Table struct {
	Schema string
	Name   string
	Alias  string
}

// Source is what a SELECT reads from
type Source interface{ source() }

// Subquery is a derived table
type Subquery struct {
	Q     Query
	Alias string
}

// Join is a LEFT JOIN
type Join struct {
	T  Table
	On Pred
}

// Select is a single SELECT statement
type Select struct {
	Fields  []Field
	From    Source
	Joins   []Join
	Where   []Pred
	GroupBy []Expr
	OrderBy []Order
	Limit   int // 0 means none
	Offset  int
}

// Union combines selects with identical projections; duplicates collapse unless All
type Union struct {
	Parts []*Select
	All   bool
}

// Count is SELECT COUNT(*) over Q
type Count struct{ Q Query }

func (Col) expr()         {}
func (Ref) expr()         {}
func (Lower) expr()       {}
func (AsText) expr()      {}
func (AsTextArray) expr() {}
func (AsFloat) expr()     {}
func (Agg) expr()         {}
func (CountAll) expr()    {}
func (Percentile) expr()  {}
func (BucketStart) expr() {}
func (BucketLabel) expr() {}
func (LocalTime) expr()   {}

func (Cmp) pred()        {}
func (In) pred()         {}
func (Contains) pred()   {}
func (Overlap) pred()    {}
func (IsNull) pred()     {}
func (ArrayEmpty) pred() {}
func (And) pred()        {}
func (Or) pred()         {}
func (Not) pred()        {}
func (SubqueryIn) pred() {}

func (Table) source()    {}
func (Subquery) source() {}

func (*Select) query() {}
func (*Union) query()  {}
func (Count) query()   {}

// Eq is shorthand for Cmp{L, "=", R}
func Eq(l, r Expr) Cmp { return Cmp{L: l, Op: "=", R: r} }

// C is shorthand for a qualified column
func C(table, name string) Col { return Col{Table: table, Name: name} }

// Window returns a shallow copy of s with limit and offset applied
func (s *Select) Window(limit, offset int) *Select {
	c := *s
	c.Limit, c.Offset = limit, offset
	return &c
}

// Unordered returns a shallow copy of s without ORDER BY, LIMIT and OFFSET
func (s *Select) Unordered() *Select {
	c := *s
	c.OrderBy, c.Limit, c.Offset = nil, 0, 0
	return &c
}

// Bind binds r's arguments into p under name and returns the resulting fragment
func (r Raw) Bind(p *Params, name string) (Fragment, error) {
	var f Fragment
	rest := r.SQL
	for i := 0; ; i++ {
		j := indexPlaceholder(rest)
		if j < 0 {
			if i != len(r.Args) {
				return Fragment{}, fmt.Errorf("sqlb: raw fragment has %d placeholders and %d args", i, len(r.Args))
			}
			f.Parts = append(f.Parts, rest)
			return f, nil
		}
		if i >= len(r.Args) {
			return Fragment{}, fmt.Errorf("sqlb: raw fragment has more placeholders than %d args", len(r.Args))
		}
		f.Parts = append(f.Parts, rest[:j])
		f.Refs = append(f.Refs, p.Bind(name, r.Args[i].Type, r.Args[i].Value))
		rest = rest[j+1:]
	}
}

// indexPlaceholder finds the next ? outside single quotes
func indexPlaceholder(s string) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			quoted = !quoted
		case '?':
			if !quoted {
				return i
			}
		}
	}
	return -1
}
