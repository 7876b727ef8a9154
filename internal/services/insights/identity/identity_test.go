package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

func TestMappings_Postgres(t *testing.T) {
	t.Parallel()

	raw, err := Mappings{}.ResolveUsersForScope(context.Background(), "acme", filter.UserScope{OURefs: []string{"ou-2", "ou-1", "ou-2"}})
	require.NoError(t, err)
	assert.Equal(t, `SELECT m.user_id FROM "acme"."ou_user_mappings" m WHERE m.ou_ref = ANY(?)`, raw.SQL)
	require.Len(t, raw.Args, 1)
	assert.Equal(t, sqlb.TextArray, raw.Args[0].Type)
	assert.Equal(t, []string{"ou-1", "ou-2"}, raw.Args[0].Value)

	p := sqlb.NewParams("")
	frag, err := raw.Bind(p, "user_scope")
	require.NoError(t, err)
	assert.Len(t, frag.Refs, 1)
}

func TestMappings_ClickHouse(t *testing.T) {
	t.Parallel()

	raw, err := Mappings{Dialect: sqlb.ClickHouse}.ResolveUsersForScope(context.Background(), "acme", filter.UserScope{OURefs: []string{"ou-1"}})
	require.NoError(t, err)
	assert.Contains(t, raw.SQL, "WHERE has(?, m.ou_ref)")
}

func TestMappings_Errors(t *testing.T) {
	t.Parallel()

	_, err := Mappings{}.ResolveUsersForScope(context.Background(), "acme", filter.UserScope{})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
	_, err = Mappings{}.ResolveUsersForScope(context.Background(), "acme", filter.UserScope{OURefs: []string{""}})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
	_, err = Mappings{}.ResolveUsersForScope(context.Background(), "acme;drop", filter.UserScope{OURefs: []string{"x"}})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))
}
