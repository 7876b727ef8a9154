// Package sqlb is a small structured SQL builder
//
// Queries are assembled as typed values (selects, predicates, expressions) and only
// turned into text by Render for a given Dialect, so the same query tree can be
// inspected in tests and rendered for Postgres or ClickHouse.
package sqlb

import (
	"fmt"
	"strconv"
)

// Type is the SQL type a bound value is sent as
type Type uint8

// Types
const (
	Text Type = iota
	UUID
	Int
	Bigint
	Float
	Timestamptz
	Timestamp // zone-less wall clock
	TextArray
	UUIDArray
	BigintArray
)

func (t Type) pgName() string {
	switch t {
	case UUID:
		return "uuid"
	case Int:
		return "int"
	case Bigint:
		return "bigint"
	case Float:
		return "double precision"
	case Timestamptz:
		return "timestamptz"
	case Timestamp:
		return "timestamp"
	case TextArray:
		return "text[]"
	case UUIDArray:
		return "uuid[]"
	case BigintArray:
		return "bigint[]"
	default:
		return "text"
	}
}

// String returns the postgres type name
func (t Type) String() string { return t.pgName() }

// IsArray reports whether t is a collection type
func (t Type) IsArray() bool { return t == TextArray || t == UUIDArray || t == BigintArray }

// Elem returns the element type of an array type
func (t Type) Elem() Type {
	switch t {
	case UUIDArray:
		return UUID
	case BigintArray:
		return Bigint
	case TextArray:
		return Text
	}
	return t
}

// Param is one named bound value
type Param struct {
	Name  string
	Type  Type
	Value any
}

// Params records bindings in insertion order; names are unique within a sink
type Params struct {
	prefix string
	list   []Param
	index  map[string]int
}

// NewParams returns an empty sink whose names all start with prefix
func NewParams(prefix string) *Params {
	return &Params{prefix: prefix, index: map[string]int{}}
}

// Bind records v under name (suffixed _2, _3... when taken) and returns a reference to it
func (p *Params) Bind(name string, t Type, v any) Ref {
	if p.index == nil {
		p.index = map[string]int{}
	}
	base := p.prefix + name
	n := base
	for i := 2; ; i++ {
		if _, taken := p.index[n]; !taken {
			break
		}
		n = base + "_" + strconv.Itoa(i)
	}
	p.index[n] = len(p.list)
	p.list = append(p.list, Param{Name: n, Type: t, Value: v})
	return Ref{Name: n}
}

// Merge appends every binding of o; names must not collide
func (p *Params) Merge(o *Params) error {
	if o == nil {
		return nil
	}
	for _, x := range o.list {
		if _, taken := p.index[x.Name]; taken {
			return fmt.Errorf("sqlb: duplicate parameter %q", x.Name)
		}
	}
	for _, x := range o.list {
		if p.index == nil {
			p.index = map[string]int{}
		}
		p.index[x.Name] = len(p.list)
		p.list = append(p.list, x)
	}
	return nil
}

// List returns the bindings in insertion order
func (p *Params) List() []Param {
	if p == nil {
		return nil
	}
	out := make([]Param, len(p.list))
	copy(out, p.list)
	return out
}

// Len returns the number of bindings
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.list)
}

func (p *Params) lookup(name string) (Param, bool) {
	if p == nil {
		return Param{}, false
	}
	i, ok := p.index[name]
	if !ok {
		return Param{}, false
	}
	return p.list[i], true
}
