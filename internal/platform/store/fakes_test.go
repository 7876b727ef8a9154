package store

import (
	"context"
	"errors"
)

// memRows is an in-memory Rows over fixed columns and values
type memRows struct {
	cols   []string
	data   [][]any
	i      int
	err    error
	closed bool
}

func (m *memRows) Next() bool {
	if m.i >= len(m.data) {
		return false
	}
	m.i++
	return true
}

func (m *memRows) Scan(dest ...any) error {
	row := m.data[m.i-1]
	if len(dest) != len(row) {
		return errors.New("scan arity mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *any:
			*p = row[i]
		case *string:
			*p = row[i].(string)
		case *int64:
			*p = row[i].(int64)
		default:
			return errors.New("unsupported dest")
		}
	}
	return nil
}

func (m *memRows) Err() error        { return m.err }
func (m *memRows) Close()            { m.closed = true }
func (m *memRows) Columns() []string { return m.cols }

type scalarRow struct {
	v   int64
	err error
}

func (r scalarRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.v
	return nil
}

// memQuerier returns the configured rows and records the last statement
type memQuerier struct {
	rows    *memRows
	err     error
	row     scalarRow
	lastSQL string
	lastArg []any
}

func (q *memQuerier) Query(_ context.Context, sql string, args ...any) (Rows, error) {
	q.lastSQL, q.lastArg = sql, args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func (q *memQuerier) Exec(context.Context, string, ...any) (CommandTag, error) { return nil, nil }

func (q *memQuerier) QueryRow(_ context.Context, sql string, args ...any) Row {
	q.lastSQL, q.lastArg = sql, args
	return q.row
}
