// Package module implements the insights service module
package module

import (
	"github.com/linuxautomates/gitsei-sub026/internal/core/compile"
	"github.com/linuxautomates/gitsei-sub026/internal/core/compose"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	"github.com/linuxautomates/gitsei-sub026/internal/modkit"
	"github.com/linuxautomates/gitsei-sub026/internal/modkit/repokit"
	"github.com/linuxautomates/gitsei-sub026/internal/services/insights/domain"
	"github.com/linuxautomates/gitsei-sub026/internal/services/insights/identity"
	"github.com/linuxautomates/gitsei-sub026/internal/services/insights/repo"
	"github.com/linuxautomates/gitsei-sub026/internal/services/insights/scopes"
	"github.com/linuxautomates/gitsei-sub026/internal/services/insights/service"
)

// Name is the registry name of the module
const Name = "insights"

// Ports exposed by the insights module
type Ports struct {
	Service domain.ServicePort
}

// Collaborators replace the configured scope and identity adapters; nil fields keep the defaults
type Collaborators struct {
	Scopes domain.ScopeExpander
	Users  domain.UserScopeResolver
}

// WithCollaborators injects external collaborator ports
func WithCollaborators(c Collaborators) modkit.Option { return modkit.WithPorts(c) }

// Module implements the insights service module
type Module struct {
	deps  modkit.Deps
	name  string
	opts  Options
	ports Ports
}

var _ modkit.Module = (*Module)(nil)

// New builds the module from INSIGHTS_* configuration
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	return NewWithOptions(deps, FromConfig(deps.Cfg), opts...)
}

// NewWithOptions builds the module from explicit options
// the configured dialect's backend must be present in deps
func NewWithOptions(deps modkit.Deps, o Options, opts ...modkit.Option) *Module {
	bc := modkit.Build(opts...)
	collab, _ := bc.Ports.(Collaborators)

	q := backend(deps, o.Dialect)
	if collab.Scopes == nil {
		collab.Scopes = scopeSource(deps, o.Scopes)
	}
	if collab.Users == nil {
		collab.Users = identity.Mappings{Dialect: o.Dialect}
	}

	svc := service.New(
		q,
		repo.New(o.Dialect),
		compose.New(compile.New(collab.Users, o.Dialect)),
		collab.Scopes,
		service.Config{
			Workers:         o.Workers,
			DefaultPageSize: o.DefaultPageSize,
			MaxPageSize:     o.MaxPageSize,
		},
	)

	name := bc.Name
	if name == "" {
		name = Name
	}
	deps.Log.Debug().Str("module", name).Str("dialect", o.Dialect.String()).
		Str("scopes", o.Scopes).Int("workers", svc.Cfg.Workers).Msg("insights module built")

	return &Module{deps: deps, name: name, opts: o, ports: Ports{Service: svc}}
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.name }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Options returns the effective options
func (m *Module) Options() Options { return m.opts }

func backend(deps modkit.Deps, d sqlb.Dialect) repokit.Queryer {
	if d == sqlb.ClickHouse {
		if deps.CH == nil {
			panic("insights: clickhouse dialect without a clickhouse backend")
		}
		return deps.CH
	}
	if deps.PG == nil {
		panic("insights: postgres dialect without a postgres backend")
	}
	return deps.PG
}

func scopeSource(deps modkit.Deps, src string) domain.ScopeExpander {
	if src != ScopesPG {
		return scopes.None{}
	}
	if deps.PG == nil {
		panic("insights: pg scopes without a postgres backend")
	}
	return scopes.PG{Q: deps.PG}
}
