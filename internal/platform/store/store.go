// Package store provides a unified interface to the relational and columnar backends
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/linuxautomates/gitsei-sub026/internal/platform/logger"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/store/pg"
)

// Store holds the backends one process reads insights from
// the zero value has no backends; Guard and Close are no-ops on it
type Store struct {
	Log     logger.Logger
	Tracers []pg.QueryTracer // one event per statement, every backend
	PG      RowQuerier       // nil unless postgres is enabled
	CH      Clickhouse       // nil unless clickhouse is enabled
}

// Row exposes the minimal scan contract a single row needs
type Row interface {
	Scan(dest ...any) error
}

// Rows exposes the minimal iteration and scan for a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what an Exec did
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// Querier is the read surface shared by every backend
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// RowQuerier is the read and write surface repos use for sql
type RowQuerier interface {
	Querier
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Clickhouse is the columnar seam
type Clickhouse interface {
	Querier
	Close() error
}

// Pinger is any seam that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Open dials the backends cfg enables; disabled ones stay nil
// a failure closes whatever was already opened
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, apply := range opts {
		if err := apply(s); err != nil {
			return nil, err
		}
	}
	s.Log = s.Log.With().Str("app", cfg.AppName).Logger()

	if cfg.PG.Enabled {
		c, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = c
	}
	if cfg.CH.Enabled {
		c, err := openCH(ctx, cfg, s)
		if err != nil {
			return nil, errors.Join(err, s.Close(ctx))
		}
		s.CH = c
	}
	return s, nil
}

type backend struct {
	name string
	seam any
}

// backends lists the opened seams, clickhouse first so it closes before the pool
func (s *Store) backends() []backend {
	var out []backend
	if s.CH != nil {
		out = append(out, backend{"ch", s.CH})
	}
	if s.PG != nil {
		out = append(out, backend{"pg", s.PG})
	}
	return out
}

// Guard pings every opened backend and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	for _, b := range s.backends() {
		p, ok := b.seam.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases every opened backend
func (s *Store) Close(_ context.Context) error {
	var errs []error
	for _, b := range s.backends() {
		if c, ok := b.seam.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// tracer collapses Tracers into one; nil when none are set
func (s *Store) tracer() pg.QueryTracer {
	switch len(s.Tracers) {
	case 0:
		return nil
	case 1:
		return s.Tracers[0]
	}
	return pg.MultiTracer(s.Tracers...)
}
