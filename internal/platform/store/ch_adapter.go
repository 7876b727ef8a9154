package store

import (
	"context"
	"errors"
	"time"

	"github.com/linuxautomates/gitsei-sub026/internal/platform/store/ch"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/store/pg"
)

// chConn is the part of *ch.CH the adapter uses
type chConn interface {
	Query(ctx context.Context, sql string, args ...any) (ch.Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

// clickhouseAdapter adapts a clickhouse connection to the store.Clickhouse seam
type clickhouseAdapter struct {
	inner  chConn
	tracer pg.QueryTracer
	slowMs int
}

var _ Clickhouse = (*clickhouseAdapter)(nil)

func newCHAdapter(c chConn, tracer pg.QueryTracer, slowMs int) *clickhouseAdapter {
	return &clickhouseAdapter{inner: c, tracer: tracer, slowMs: slowMs}
}

func (a *clickhouseAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	r, err := a.inner.Query(ctx, sql, args...)
	if a.tracer != nil {
		emitEvent(ctx, a.tracer, "ch", a.slowMs, sql, args, start, err)
	}
	if err != nil {
		return nil, err
	}
	return &chRows{r: r}, nil
}

func (a *clickhouseAdapter) Close() error { return a.inner.Close() }

// Ping verifies connectivity with ClickHouse
func (a *clickhouseAdapter) Ping(ctx context.Context) error {
	if a == nil || a.inner == nil {
		return errors.New("store: nil clickhouse adapter")
	}
	return a.inner.Ping(ctx)
}

// chRows wraps ch.Rows as store.Rows
type chRows struct {
	r ch.Rows
}

func (r *chRows) Next() bool             { return r.r.Next() }
func (r *chRows) Scan(dest ...any) error { return r.r.Scan(dest...) }
func (r *chRows) Err() error             { return r.r.Err() }
func (r *chRows) Close()                 { _ = r.r.Close() }
func (r *chRows) Columns() []string      { return r.r.Columns() }
