package module

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	"github.com/linuxautomates/gitsei-sub026/internal/core/version"
	"github.com/linuxautomates/gitsei-sub026/internal/modkit"
	modreg "github.com/linuxautomates/gitsei-sub026/internal/modkit/module"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/config"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/logger"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/store"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/store/pg"
)

// StoreConfig reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_* for the backends o needs
// postgres is opened whenever the dialect or the scope source reads it
func StoreConfig(cfg config.Conf, o Options) store.Config {
	pgCfg := cfg.Prefix("SERVICE_PGSQL_")
	chCfg := cfg.Prefix("SERVICE_CLICKHOUSE_")

	sc := store.Config{AppName: Name}
	if o.Dialect == sqlb.Postgres || o.Scopes == ScopesPG {
		sc.PG = store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayIntIn("MAX_CONNS", 4, 1, 256)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		}
	}
	if o.Dialect == sqlb.ClickHouse {
		sc.CH = store.CHConfig{
			Enabled:   true,
			URL:       chCfg.MustString("DBURL"),
			ClientTag: Name,
			LogSQL:    chCfg.MayBool("LOG_SQL", false),
		}
	}
	return sc
}

// Bootstrap opens the store, checks every backend answers, builds the module and
// registers its ports under the module name for other modules in the process
// reg receives the store metrics; nil means the default registerer
// the caller owns the returned store and closes it on shutdown
func Bootstrap(ctx context.Context, cfg config.Conf, reg prometheus.Registerer, opts ...modkit.Option) (*Module, *store.Store, error) {
	log := logger.Named(Name)
	o := FromConfig(cfg)

	mt, err := pg.NewMetricsTracer(reg)
	if err != nil {
		return nil, nil, perr.Wrap(err, perr.ErrorCodeUnknown, "register store metrics")
	}
	st, err := store.Open(ctx, StoreConfig(cfg, o), store.WithLogger(*log), store.WithTracer(mt))
	if err != nil {
		return nil, nil, perr.FromStore(err, "open store")
	}
	if err := st.Guard(ctx); err != nil {
		_ = st.Close(ctx)
		return nil, nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "backends not ready")
	}

	m := NewWithOptions(modkit.FromStore(*log, cfg, st), o, opts...)
	modreg.Register(m.Name(), m.Ports())

	bi := version.Info()
	log.Info().Str("version", bi.Version).Str("commit", bi.Commit).
		Str("dialect", o.Dialect.String()).Msg("insights ready")
	return m, st, nil
}
