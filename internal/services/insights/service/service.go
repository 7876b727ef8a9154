// Package service provides the insights engine implementation
package service

import (
	"context"
	"strconv"

	"github.com/linuxautomates/gitsei-sub026/internal/core/compile"
	"github.com/linuxautomates/gitsei-sub026/internal/core/compose"
	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/plan"
	"github.com/linuxautomates/gitsei-sub026/internal/core/schema"
	"github.com/linuxautomates/gitsei-sub026/internal/modkit/repokit"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/logger"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/validate"
	"github.com/linuxautomates/gitsei-sub026/internal/services/insights/domain"
	"github.com/linuxautomates/gitsei-sub026/internal/services/insights/repo"
)

// Config for the insights service
type Config struct {
	Workers         int
	DefaultPageSize int
	MaxPageSize     int
}

// Service implements domain.ServicePort over one bound backend
type Service struct {
	Q        repokit.Queryer
	Repo     repokit.Binder[repo.StorageRepo]
	Composer *compose.Composer
	Scopes   domain.ScopeExpander
	Cfg      Config
}

var _ domain.ServicePort = (*Service)(nil)

// New constructs the service; q, binder and composer are required
func New(
	q repokit.Queryer,
	binder repokit.Binder[repo.StorageRepo],
	composer *compose.Composer,
	scopes domain.ScopeExpander,
	cfg Config,
) *Service {
	if binder == nil {
		panic("insights: nil repo binder")
	}
	if composer == nil {
		panic("insights: nil composer")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 1000
	}
	if cfg.DefaultPageSize <= 0 || cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = min(100, cfg.MaxPageSize)
	}
	return &Service{
		Q:        repokit.RequireQueryer(q),
		Repo:     binder,
		Composer: composer,
		Scopes:   scopes,
		Cfg:      cfg,
	}
}

// List implements domain.ServicePort
func (s *Service) List(ctx context.Context, tenant string, f filter.Filter, page, pageSize int) (domain.ListResult, error) {
	pageSize, err := s.check(tenant, f, page, pageSize, false)
	if err != nil {
		return domain.ListResult{}, err
	}
	ctx = logger.WithOp(logger.WithTenant(ctx, tenant), "list")
	scopes, err := s.expand(ctx, tenant, f)
	if err != nil {
		return domain.ListResult{}, err
	}
	c, err := s.Composer.List(ctx, tenant, f, scopes)
	if err != nil {
		return domain.ListResult{}, err
	}

	r := s.Repo.Bind(s.Q)
	if f.IssueType == filter.Alert {
		rows, total, err := paginate(ctx, c, page, pageSize, r.Alerts, r.Count)
		if err != nil {
			return domain.ListResult{}, err
		}
		return domain.ListResult{Alerts: rows, Total: total}, nil
	}
	rows, total, err := paginate(ctx, c, page, pageSize, r.Incidents, r.Count)
	if err != nil {
		return domain.ListResult{}, err
	}
	return domain.ListResult{Incidents: rows, Total: total}, nil
}

// Aggregate implements domain.ServicePort
func (s *Service) Aggregate(ctx context.Context, tenant string, f filter.Filter, page, pageSize int) ([]filter.Bucket, int, error) {
	pageSize, err := s.check(tenant, f, page, pageSize, true)
	if err != nil {
		return nil, 0, err
	}
	ctx = logger.WithOp(logger.WithTenant(ctx, tenant), "aggregate")
	scopes, err := s.expand(ctx, tenant, f)
	if err != nil {
		return nil, 0, err
	}
	out, total, _, err := s.aggregate(ctx, tenant, f, scopes, page, pageSize)
	return out, total, err
}

// StackedAggregate implements domain.ServicePort
// stacks overrides f.Stacks when non-empty; only the first dimension is honoured
func (s *Service) StackedAggregate(
	ctx context.Context,
	tenant string,
	f filter.Filter,
	stacks []filter.Dimension,
	page, pageSize int,
) ([]filter.Bucket, int, error) {
	if len(stacks) > 0 {
		f.Stacks = stacks
	}
	pageSize, err := s.check(tenant, f, page, pageSize, true)
	if err != nil {
		return nil, 0, err
	}
	stack, ok := f.Stack()
	if ok && !stack.Known() {
		return nil, 0, perr.ValidationField("stacks", "unknown stack dimension %q", stack)
	}
	ctx = logger.WithOp(logger.WithTenant(ctx, tenant), "stacked_aggregate")
	scopes, err := s.expand(ctx, tenant, f)
	if err != nil {
		return nil, 0, err
	}

	top, total, c, err := s.aggregate(ctx, tenant, f, scopes, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	if !ok || !stackable(stack, f.IssueType) || len(top) == 0 {
		return top, total, nil
	}

	log := logger.C(ctx)
	log.Debug().Str("across", string(f.Across)).Str("stack", string(stack)).
		Int("buckets", len(top)).Int("workers", s.Cfg.Workers).Msg("stacked aggregate fan-out")

	results := make([][]filter.Bucket, len(top))
	err = fanOut(ctx, len(top), s.Cfg.Workers, func(ctx context.Context, i int) error {
		sub, err := pin(f, c.Grouping, top[i])
		if err != nil {
			return err
		}
		sc, err := s.Composer.Aggregate(ctx, tenant, sub.WithAcross(stack), scopes)
		if err != nil {
			return err
		}
		rows, err := s.Repo.Bind(s.Q).Buckets(ctx, sc, sc.Query)
		if err != nil {
			return err
		}
		results[i] = rows
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]filter.Bucket, len(top))
	for i, b := range top {
		b.Stacks = results[i]
		out[i] = b
	}
	return out, total, nil
}

// aggregate composes and pages the top level grouping, returning the composed query for pinning
func (s *Service) aggregate(
	ctx context.Context,
	tenant string,
	f filter.Filter,
	scopes []map[string]any,
	page, pageSize int,
) ([]filter.Bucket, int, *compose.Composed, error) {
	c, err := s.Composer.Aggregate(ctx, tenant, f, scopes)
	if err != nil {
		return nil, 0, nil, err
	}
	r := s.Repo.Bind(s.Q)
	rows, total, err := paginate(ctx, c, page, pageSize, r.Buckets, r.Count)
	if err != nil {
		return nil, 0, nil, err
	}
	return rows, total, c, nil
}

// check validates the request and resolves the effective page size
// Everything composition would reject is rejected here, before scopes touch the store
func (s *Service) check(tenant string, f filter.Filter, page, pageSize int, grouped bool) (int, error) {
	if err := schema.ValidTenant(tenant); err != nil {
		return 0, err
	}
	if pageSize == 0 {
		pageSize = s.Cfg.DefaultPageSize
	}
	if err := validate.Var("page_size", pageSize, "max="+strconv.Itoa(s.Cfg.MaxPageSize)); err != nil {
		return 0, err
	}
	if err := validate.Struct(domain.Page{Number: page, Size: pageSize}); err != nil {
		return 0, err
	}
	if err := validate.Struct(f); err != nil {
		return 0, err
	}
	if err := preflight(f, grouped); err != nil {
		return 0, err
	}
	return pageSize, nil
}

func preflight(f filter.Filter, grouped bool) error {
	if err := compile.Check(f); err != nil {
		return err
	}
	fam, err := schema.For(f.IssueType)
	if err != nil || !grouped {
		return err
	}
	g, err := plan.Resolve(f.Across, f.IntervalOrDefault(), fam, "")
	if err != nil {
		return err
	}
	calc, err := plan.PlanCalculation(f.CalculationOrDefault(), fam, "")
	if err != nil {
		return err
	}
	_, err = plan.ResolveOrder(f.Sort, calc, g, f.IssueType)
	return err
}

// expand resolves scope keys once per request; workers share the result read-only
func (s *Service) expand(ctx context.Context, tenant string, f filter.Filter) ([]map[string]any, error) {
	if len(f.ScopeKeys) == 0 || s.Scopes == nil {
		return nil, nil
	}
	scopes, err := s.Scopes.ResolveScopes(ctx, tenant, f.ScopeKeys)
	if err != nil {
		return nil, perr.FromStore(err, "resolve scopes")
	}
	logger.C(ctx).Debug().Int("keys", len(f.ScopeKeys)).Int("scopes", len(scopes)).Msg("scopes expanded")
	return scopes, nil
}

// stackable reports whether stack can drill down for the family
// dimensions the family lacks leave the top level unchanged
func stackable(stack filter.Dimension, it filter.IssueType) bool {
	return plan.Supports(stack, it)
}

// pin narrows f to the rows of one top level bucket
// Time buckets narrow the range on their column; every other bucket, and a null time
// bucket, is matched against the grouping key as returned
func pin(f filter.Filter, g plan.Grouping, b filter.Bucket) (filter.Filter, error) {
	if !g.Time || b.Null {
		return f.WithPin(g.Dim, b.Key, b.Null), nil
	}
	epoch, err := strconv.ParseInt(b.Key, 10, 64)
	if err != nil {
		return filter.Filter{}, perr.Wrapf(err, perr.ErrorCodeCompilation, "bucket key %q is not an epoch", b.Key)
	}
	start, end := g.Truncation.Bounds(epoch)
	return f.WithRangeWithin(g.Column, start, end), nil
}
