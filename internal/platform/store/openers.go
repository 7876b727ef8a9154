package store

import (
	"context"
	"fmt"
	"time"

	chx "github.com/linuxautomates/gitsei-sub026/internal/platform/store/ch"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/store/pg"
)

var (
	openPool = pg.Open
	pingPool = func(ctx context.Context, p *pg.PG) error { return p.Pool.Ping(ctx) }
	openCHX  = chx.Open
	sleep    = time.Sleep
)

const (
	defaultConnectRetries = 20
	defaultPingTimeout    = 3 * time.Second
	backoffStart          = 150 * time.Millisecond
	backoffCeiling        = 2 * time.Second
)

// sqlTracer combines the store tracers with the SQL log tracer when enabled
func sqlTracer(s *Store, logSQL bool) pg.QueryTracer {
	t := s.tracer()
	if !logSQL {
		return t
	}
	if t == nil {
		return pg.Tracer(s.Log)
	}
	return pg.MultiTracer(t, pg.Tracer(s.Log))
}

// openPG opens pg, waits for the pool to answer, and wraps it with the sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (*pgAdapter, error) {
	p, err := openPool(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, sqlTracer(s, cfg.PG.LogSQL), nil)
	if err != nil {
		return nil, err
	}

	attempts := cfg.PG.ConnectRetries
	if attempts <= 0 {
		attempts = defaultConnectRetries
	}
	timeout := cfg.PG.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = pingPool(toCtx, p) // pool ping, no trace line
		cancel()

		if lastErr == nil {
			return newPGAdapter(p), nil
		}
		if ctx.Err() != nil {
			p.Close()
			return nil, ctx.Err()
		}
		s.Log.Warn().Err(lastErr).Int("attempt", i+1).Int("max", attempts).Msg("postgres not ready")
		sleep(backoff)
		backoff = min(backoff*2, backoffCeiling)
	}

	p.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, lastErr)
}

func openCH(ctx context.Context, cfg Config, s *Store) (Clickhouse, error) {
	c, err := openCHX(ctx, chx.Config{URL: cfg.CH.URL, Tag: cfg.CH.ClientTag, Role: cfg.AppName})
	if err != nil {
		return nil, err
	}
	return newCHAdapter(c, sqlTracer(s, cfg.CH.LogSQL), cfg.PG.SlowQueryMs), nil
}
