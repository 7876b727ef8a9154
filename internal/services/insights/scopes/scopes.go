// Package scopes provides ScopeExpander adapters
package scopes

import (
	"context"
	"fmt"
	"maps"

	"github.com/jackc/pgx/v5"

	"github.com/linuxautomates/gitsei-sub026/internal/core/schema"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/store"
)

// None never expands; every filter applies unchanged
type None struct{}

// ResolveScopes implements domain.ScopeExpander
func (None) ResolveScopes(context.Context, string, []string) ([]map[string]any, error) {
	return nil, nil
}

// Static serves sub-filters from memory, keyed by product key
type Static map[string][]map[string]any

// ResolveScopes returns the sub-filters of each key in key order; repeated keys count once
func (s Static) ResolveScopes(_ context.Context, _ string, keys []string) ([]map[string]any, error) {
	var out []map[string]any
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		for _, f := range s[k] {
			out = append(out, maps.Clone(f))
		}
	}
	return out, nil
}

// PG reads sub-filters from <tenant>.product_scopes(product_key text, filter jsonb)
type PG struct {
	Q store.Querier
}

// ResolveScopes implements domain.ScopeExpander
func (p PG) ResolveScopes(ctx context.Context, tenant string, keys []string) ([]map[string]any, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if err := schema.ValidTenant(tenant); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(
		`SELECT filter FROM %s WHERE product_key = ANY($1::text[]) ORDER BY product_key, filter::text`,
		pgx.Identifier{tenant, "product_scopes"}.Sanitize(),
	)
	out, err := store.Many(ctx, p.Q, func(r store.Row) (map[string]any, error) {
		var f map[string]any
		err := r.Scan(&f)
		return f, err
	}, sql, keys)
	if err != nil {
		return nil, perr.FromStore(err, "resolve scopes")
	}
	return out, nil
}
