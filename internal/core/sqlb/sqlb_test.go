package sqlb

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_BindDedupesNames(t *testing.T) {
	t.Parallel()

	p := NewParams("s1_")
	a := p.Bind("status", Text, "open")
	b := p.Bind("status", Text, "closed")
	c := p.Bind("status", Text, "ack")
	assert.Equal(t, "s1_status", a.Name)
	assert.Equal(t, "s1_status_2", b.Name)
	assert.Equal(t, "s1_status_3", c.Name)

	list := p.List()
	require.Len(t, list, 3)
	assert.Equal(t, "closed", list[1].Value)
	assert.Equal(t, 3, p.Len())
}

func TestParams_Merge(t *testing.T) {
	t.Parallel()

	a, b := NewParams("s0_"), NewParams("s1_")
	a.Bind("x", Int, 1)
	b.Bind("x", Int, 2)
	out := NewParams("")
	require.NoError(t, out.Merge(a))
	require.NoError(t, out.Merge(b))
	assert.Equal(t, 2, out.Len())
	assert.Error(t, out.Merge(a), "re-merging the same names must fail")
}

func TestRenderPred_Postgres(t *testing.T) {
	t.Parallel()

	p := NewParams("")
	svc := p.Bind("pd_service_id", UUIDArray, []string{"a", "b"})
	st := p.Bind("status", Text, "open")
	from := p.Bind("created_at_from", Timestamptz, time.Unix(0, 0).UTC())

	pred := And{
		In{L: C("i", "pd_service_id"), R: svc},
		Eq(Lower{E: C("i", "status")}, st),
		Cmp{L: C("i", "created_at"), Op: ">", R: from},
		IsNull{E: C("i", "resolved_at")},
		ArrayEmpty{E: C("i", "assignee_ids"), Not: true},
		Not{P: Or{IsNull{E: C("i", "user_id"), Not: true}}},
	}
	sql, args, err := RenderPred(Postgres, pred, p)
	require.NoError(t, err)
	assert.Equal(t,
		"(i.pd_service_id = ANY($1::uuid[]) AND lower(i.status) = $2::text AND i.created_at > $3::timestamptz"+
			" AND i.resolved_at IS NULL AND cardinality(i.assignee_ids) > 0 AND NOT (i.user_id IS NOT NULL))",
		sql)
	assert.Equal(t, []any{[]string{"a", "b"}, "open", time.Unix(0, 0).UTC()}, args)
}

func TestRenderPred_ClickHouse(t *testing.T) {
	t.Parallel()

	p := NewParams("")
	svc := p.Bind("pd_service_id", UUIDArray, []string{"a"})
	asg := p.Bind("assignee_ids", UUIDArray, []string{"u"})
	pred := And{
		In{L: C("a", "pd_service_id"), R: svc},
		Overlap{Arr: C("a", "assignee_ids"), R: asg},
		ArrayEmpty{E: C("a", "assignee_ids")},
	}
	sql, args, err := RenderPred(ClickHouse, pred, p)
	require.NoError(t, err)
	assert.Equal(t, "(has(?, a.pd_service_id) AND hasAny(a.assignee_ids, ?) AND empty(a.assignee_ids))", sql)
	assert.Len(t, args, 2)
}

func TestRender_RepeatedRef(t *testing.T) {
	t.Parallel()

	p := NewParams("")
	x := p.Bind("x", Bigint, int64(5))
	pred := Or{Eq(C("", "a"), x), Eq(C("", "b"), x)}

	sql, args, err := RenderPred(Postgres, pred, p)
	require.NoError(t, err)
	assert.Equal(t, "(a = $1::bigint OR b = $1::bigint)", sql)
	assert.Len(t, args, 1)

	sql, args, err = RenderPred(ClickHouse, pred, p)
	require.NoError(t, err)
	assert.Equal(t, "(a = ? OR b = ?)", sql)
	assert.Len(t, args, 2)
}

func TestRender_SelectUnionCount(t *testing.T) {
	t.Parallel()

	p := NewParams("")
	s0 := p.Bind("s0_status", Text, "open")
	s1 := p.Bind("s1_status", Text, "ack")
	cand := func(r Ref) *Select {
		return &Select{
			Fields: []Field{{E: C("i", "id")}, {E: C("i", "pd_service_id")}},
			From:   Table{Schema: "acme", Name: "pd_incidents", Alias: "i"},
			Where:  []Pred{Eq(C("i", "status"), r)},
		}
	}
	outer := &Select{
		Fields:  []Field{{E: AsText{E: C("u", "pd_service_id")}, As: "bucket_key"}, {E: AsFloat{E: Agg{Fn: "COUNT", E: C("u", "id"), Distinct: true}}, As: "ct"}},
		From:    Subquery{Q: &Union{Parts: []*Select{cand(s0), cand(s1)}}, Alias: "u"},
		Joins:   []Join{{T: Table{Schema: "acme", Name: "pd_services", Alias: "s"}, On: Eq(C("s", "id"), C("u", "pd_service_id"))}},
		GroupBy: []Expr{C("", "bucket_key")},
		OrderBy: []Order{{E: C("", "ct"), Desc: true}, {E: C("", "bucket_key")}},
	}

	sql, args, err := Render(Postgres, outer.Window(10, 20), p)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT CAST(u.pd_service_id AS text) AS bucket_key, CAST(COUNT(DISTINCT u.id) AS double precision) AS ct`+
			` FROM (SELECT i.id, i.pd_service_id FROM "acme"."pd_incidents" i WHERE i.status = $1::text`+
			` UNION SELECT i.id, i.pd_service_id FROM "acme"."pd_incidents" i WHERE i.status = $2::text) u`+
			` LEFT JOIN "acme"."pd_services" s ON s.id = u.pd_service_id`+
			` GROUP BY bucket_key ORDER BY ct DESC, bucket_key ASC LIMIT 10 OFFSET 20`,
		sql)
	assert.Equal(t, []any{"open", "ack"}, args)

	sql, _, err = Render(ClickHouse, Count{Q: outer.Unordered()}, p)
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT toInt64(COUNT(*)) AS total FROM (SELECT toString(u.pd_service_id) AS bucket_key")
	assert.Contains(t, sql, " UNION DISTINCT ")
	assert.NotContains(t, sql, "ORDER BY")
	assert.NotContains(t, sql, "LIMIT")
}

func TestRender_TimeBuckets(t *testing.T) {
	t.Parallel()

	e := C("u", "created_at")
	cases := []struct {
		d    Dialect
		expr Expr
		want string
	}{
		{Postgres, BucketStart{E: e, Unit: UnitWeek}, "CAST(EXTRACT(EPOCH FROM date_trunc('week', u.created_at AT TIME ZONE 'UTC')) AS bigint)"},
		{Postgres, BucketLabel{E: e, Unit: UnitQuarter}, "to_char(date_trunc('quarter', u.created_at AT TIME ZONE 'UTC'), 'Q-YYYY')"},
		{Postgres, BucketLabel{E: e, Unit: UnitDay}, "to_char(date_trunc('day', u.created_at AT TIME ZONE 'UTC'), 'DD-MM-YYYY')"},
		{ClickHouse, BucketStart{E: e, Unit: UnitMonth}, "toInt64(toUnixTimestamp(toDateTime(toStartOfMonth(u.created_at, 'UTC'), 'UTC')))"},
		{ClickHouse, BucketLabel{E: e, Unit: UnitDay}, "formatDateTime(toDateTime(toStartOfDay(u.created_at, 'UTC'), 'UTC'), '%d-%m-%Y', 'UTC')"},
		{Postgres, Percentile{E: C("u", "solve_time"), P: 0.9}, "percentile_cont(0.9) WITHIN GROUP (ORDER BY u.solve_time)"},
		{Postgres, AsTextArray{E: C("u", "assignee_ids")}, "CAST(u.assignee_ids AS text[])"},
		{ClickHouse, AsTextArray{E: C("u", "assignee_ids")}, "arrayMap(x -> toString(x), u.assignee_ids)"},
		{ClickHouse, Percentile{E: C("u", "solve_time"), P: 0.5}, "quantileExactInclusive(0.5)(u.solve_time)"},
	}
	for _, c := range cases {
		q := &Select{Fields: []Field{{E: c.expr}}, From: Table{Name: "t"}}
		sql, _, err := Render(c.d, q, NewParams(""))
		require.NoError(t, err)
		assert.Equal(t, `SELECT `+c.want+` FROM "t"`, sql)
	}
}

func TestRender_LocalTimeUnsupportedOnClickHouse(t *testing.T) {
	t.Parallel()

	p := NewParams("")
	ref := p.Bind("oh", Timestamp, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	pred := Cmp{L: LocalTime{E: C("i", "created_at"), Zone: C("i", "time_zone")}, Op: ">=", R: ref}

	sql, _, err := RenderPred(Postgres, pred, p)
	require.NoError(t, err)
	assert.Equal(t, "(i.created_at AT TIME ZONE i.time_zone) >= $1::timestamp", sql)

	_, _, err = RenderPred(ClickHouse, pred, p)
	var ue *UnsupportedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, ClickHouse, ue.Dialect)
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	p := NewParams("")
	_, _, err := RenderPred(Postgres, Eq(C("", "a"), Ref{Name: "missing"}), p)
	assert.Error(t, err)

	_, _, err = RenderPred(Postgres, Cmp{L: C("", "a"), Op: "; DROP", R: C("", "b")}, p)
	assert.Error(t, err)

	_, _, err = Render(Postgres, &Select{}, p)
	assert.Error(t, err)

	_, _, err = Render(Postgres, &Union{}, p)
	assert.Error(t, err)
}

func TestRaw_Bind(t *testing.T) {
	t.Parallel()

	p := NewParams("")
	frag, err := Raw{
		SQL:  "SELECT m.user_id FROM \"acme\".ou_user_mappings m WHERE m.note <> '?' AND m.ou_ref = ANY(?)",
		Args: []Arg{{Type: TextArray, Value: []string{"ou-1"}}},
	}.Bind(p, "user_scope")
	require.NoError(t, err)

	sql, args, err := RenderPred(Postgres, SubqueryIn{L: C("i", "user_id"), Sub: frag}, p)
	require.NoError(t, err)
	assert.Equal(t, `i.user_id IN (SELECT m.user_id FROM "acme".ou_user_mappings m WHERE m.note <> '?' AND m.ou_ref = ANY($1::text[]))`, sql)
	assert.Equal(t, []any{[]string{"ou-1"}}, args)

	_, err = Raw{SQL: "a = ? AND b = ?", Args: []Arg{{Type: Text, Value: "x"}}}.Bind(p, "r")
	assert.Error(t, err)
	_, err = Raw{SQL: "a = 1", Args: []Arg{{Type: Text, Value: "x"}}}.Bind(p, "r")
	assert.Error(t, err)
}

func TestColumns(t *testing.T) {
	t.Parallel()

	p := NewParams("")
	pred := Not{P: And{
		Eq(Lower{E: C("i", "status")}, p.Bind("s", Text, "x")),
		Cmp{L: LocalTime{E: C("i", "created_at"), Zone: C("i", "time_zone")}, Op: "<", R: p.Bind("t", Timestamp, time.Time{})},
	}}
	assert.Equal(t, []Col{C("i", "status"), C("i", "created_at"), C("i", "time_zone")}, Columns(pred))
}

func TestParseDialect(t *testing.T) {
	t.Parallel()

	d, err := ParseDialect("ClickHouse")
	require.NoError(t, err)
	assert.Equal(t, ClickHouse, d)
	d, err = ParseDialect("")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)
	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}
