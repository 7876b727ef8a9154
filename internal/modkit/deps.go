// Package modkit provides module wiring and core deps
package modkit

import (
	"github.com/linuxautomates/gitsei-sub026/internal/platform/config"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/logger"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  store.RowQuerier
	CH  store.Clickhouse
}

// FromStore copies the opened backends of st into Deps
func FromStore(log logger.Logger, cfg config.Conf, st *store.Store) Deps {
	d := Deps{Log: log, Cfg: cfg}
	if st != nil {
		d.PG = st.PG
		d.CH = st.CH
	}
	return d
}
