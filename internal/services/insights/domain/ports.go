package domain

import (
	"context"

	"github.com/linuxautomates/gitsei-sub026/internal/core/compile"
	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
)

// ServicePort is the caller-facing insights surface
type ServicePort interface {
	List(ctx context.Context, tenant string, f filter.Filter, page, pageSize int) (ListResult, error)
	Aggregate(ctx context.Context, tenant string, f filter.Filter, page, pageSize int) ([]filter.Bucket, int, error)
	StackedAggregate(ctx context.Context, tenant string, f filter.Filter, stacks []filter.Dimension, page, pageSize int) ([]filter.Bucket, int, error)
}

// ScopeExpander resolves product scope keys into independent sub-filters
// an empty result means the caller's filter applies unchanged
type ScopeExpander interface {
	ResolveScopes(ctx context.Context, tenant string, keys []string) ([]map[string]any, error)
}

// UserScopeResolver turns an org unit scope into a user id subquery
type UserScopeResolver = compile.UserResolver
