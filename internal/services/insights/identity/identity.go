// Package identity resolves org unit scopes into user id subqueries
package identity

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/schema"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

// Mappings reads <tenant>.ou_user_mappings(ou_ref text, user_id uuid)
type Mappings struct {
	Dialect sqlb.Dialect
}

// ResolveUsersForScope implements domain.UserScopeResolver
func (m Mappings) ResolveUsersForScope(_ context.Context, tenant string, scope filter.UserScope) (sqlb.Raw, error) {
	if err := schema.ValidTenant(tenant); err != nil {
		return sqlb.Raw{}, err
	}
	refs := slices.DeleteFunc(slices.Clone(scope.OURefs), func(s string) bool { return s == "" })
	slices.Sort(refs)
	refs = slices.Compact(refs)
	if len(refs) == 0 {
		return sqlb.Raw{}, perr.ValidationField("user_scope.ou_refs", "at least one org unit is required")
	}
	table := pgx.Identifier{tenant, "ou_user_mappings"}.Sanitize()
	match := "m.ou_ref = ANY(?)"
	if m.Dialect == sqlb.ClickHouse {
		match = "has(?, m.ou_ref)"
	}
	return sqlb.Raw{
		SQL:  fmt.Sprintf("SELECT m.user_id FROM %s m WHERE %s", table, match),
		Args: []sqlb.Arg{{Type: sqlb.TextArray, Value: refs}},
	}, nil
}
