package module

import (
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/config"
	"github.com/linuxautomates/gitsei-sub026/internal/services/insights/service"
)

// Scope sources
const (
	ScopesNone = "none"
	ScopesPG   = "pg"
)

// Options holds configuration settings for the insights module
type Options struct {
	Dialect         sqlb.Dialect
	Scopes          string
	Workers         int
	DefaultPageSize int
	MaxPageSize     int
}

// FromConfig reads INSIGHTS_* settings; invalid enums panic like the rest of config
func FromConfig(cfg config.Conf) Options {
	ic := cfg.Prefix("INSIGHTS_")
	d, err := sqlb.ParseDialect(ic.MayEnum("DIALECT", "postgres", "postgres", "clickhouse"))
	if err != nil {
		panic(err)
	}
	maxPage := ic.MayIntIn("MAX_PAGE_SIZE", 1000, 1, 10000)
	return Options{
		Dialect:         d,
		Scopes:          ic.MayEnum("SCOPES", ScopesNone, ScopesNone, ScopesPG),
		Workers:         ic.MayIntIn("STACK_WORKERS", service.DefaultWorkers, 1, 64),
		DefaultPageSize: ic.MayIntIn("DEFAULT_PAGE_SIZE", min(100, maxPage), 1, maxPage),
		MaxPageSize:     maxPage,
	}
}
