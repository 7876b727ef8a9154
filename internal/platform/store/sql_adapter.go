package store

import (
	"context"
	"errors"
	"time"

	"github.com/linuxautomates/gitsei-sub026/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgAdapter exposes a pg.PG pool as RowQuerier and reports every statement to its tracer
type pgAdapter struct {
	p *pg.PG
}

func newPGAdapter(p *pg.PG) *pgAdapter { return &pgAdapter{p: p} }

// Ping runs a trivial statement through the traced path
func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.p == nil {
		return errors.New("pg: nil adapter")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error {
	a.p.Close()
	return nil
}

func (a *pgAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	done := a.observe(ctx, sql, args)
	rs, err := a.p.Pool.Query(ctx, sql, args...)
	done(err)
	if err != nil {
		return nil, err
	}
	return pgRows{rs}, nil
}

func (a *pgAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	// pgx defers the error to Scan, so the event fires there
	return pgRow{r: a.p.Pool.QueryRow(ctx, sql, args...), done: a.observe(ctx, sql, args)}
}

func (a *pgAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	done := a.observe(ctx, sql, args)
	ct, err := a.p.Pool.Exec(ctx, sql, args...)
	done(err)
	return pgTag{ct}, err
}

// observe starts the clock for one statement; the returned func reports it
func (a *pgAdapter) observe(ctx context.Context, sql string, args []any) func(error) {
	if a == nil || a.p == nil || a.p.Tracer == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) { emitEvent(ctx, a.p.Tracer, "pg", a.p.SlowMs, sql, args, start, err) }
}

// emitEvent builds the QueryEvent shared by the pg and ch adapters
func emitEvent(ctx context.Context, t pg.QueryTracer, backend string, slowMs int, sql string, args []any, start time.Time, err error) {
	us := time.Since(start).Microseconds()
	t.OnQuery(ctx, pg.QueryEvent{
		Backend:   backend,
		SQL:       sql,
		Args:      args,
		ElapsedUS: us,
		Err:       err,
		Slow:      slowMs > 0 && us >= int64(slowMs)*1000,
	})
}

type pgRow struct {
	r    pgx.Row
	done func(error)
}

func (x pgRow) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	x.done(err)
	return err
}

type pgRows struct{ pgx.Rows }

// Columns lists the result column names in select order
func (x pgRows) Columns() []string {
	fds := x.FieldDescriptions()
	names := make([]string, 0, len(fds))
	for _, fd := range fds {
		names = append(names, fd.Name)
	}
	return names
}

type pgTag struct{ pgconn.CommandTag }
