package compile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/schema"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

const svcA = "6f1c2d3e-4b5a-4c6d-8e7f-90a1b2c3d4e5"

type fakeUsers struct {
	raw   sqlb.Raw
	err   error
	calls int
}

func (f *fakeUsers) ResolveUsersForScope(_ context.Context, _ string, _ filter.UserScope) (sqlb.Raw, error) {
	f.calls++
	return f.raw, f.err
}

func family(t *testing.T, it filter.IssueType) *schema.Family {
	t.Helper()
	fam, err := schema.For(it)
	require.NoError(t, err)
	return fam
}

func compile(t *testing.T, c *Compiler, f filter.Filter) ([]sqlb.Pred, *sqlb.Params, error) {
	t.Helper()
	p := sqlb.NewParams("")
	preds, err := c.Compile(context.Background(), "acme", f, family(t, f.IssueType), p)
	return preds, p, err
}

func render(t *testing.T, preds []sqlb.Pred, p *sqlb.Params) (string, []any) {
	t.Helper()
	sql, args, err := sqlb.RenderPred(sqlb.Postgres, sqlb.And(preds), p)
	require.NoError(t, err)
	return sql, args
}

func TestCompile_Basic(t *testing.T) {
	t.Parallel()

	f := filter.Filter{
		IssueType:  filter.Incident,
		Across:     filter.Service,
		Statuses:   []string{"Open"},
		ServiceIDs: []string{svcA},
	}
	preds, p, err := compile(t, New(nil, sqlb.Postgres), f)
	require.NoError(t, err)
	sql, args := render(t, preds, p)
	assert.Equal(t, "(lower(i.status) = ANY($1::text[]) AND i.pd_service_id = ANY($2::uuid[]))", sql)
	assert.Equal(t, []any{[]string{"open"}, []string{svcA}}, args)
}

func TestCompile_AllowListContainment(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(72 * time.Hour)
	base := filter.Filter{
		Across:     filter.Status,
		CreatedAt:  &filter.TimeRange{From: &from, To: &to},
		ResolvedAt: &filter.TimeRange{To: &to},
		Priorities: []string{"P1"},
		Urgencies:  []string{"high"},
		Statuses:   []string{"resolved"},
		Severities: []string{"critical"},
		ServiceIDs: []string{svcA, "not-a-uuid"},
		Conditions: map[string]any{
			"summary":          "disk full",
			"severity":         "warning",
			"1=1; drop table":  "x",
			"pd_service_id":    svcA,
			"incident_id":      []string{svcA},
			"solve_time":       int64(30),
			"unknown_column":   []any{1, 2},
			"acknowledged_by":  nil,
			"incident_urgency": "low",
		},
		MissingFields: map[string]bool{"resolved_at": true, "severity": false, "bogus": true},
	}

	for _, it := range []filter.IssueType{filter.Incident, filter.Alert} {
		f := base.Clone()
		f.IssueType = it
		fam := family(t, it)
		preds, _, err := compile(t, New(nil, sqlb.Postgres), f)
		require.NoError(t, err, it)
		require.NotEmpty(t, preds)
		for _, col := range sqlb.Columns(sqlb.And(preds)) {
			assert.Equal(t, fam.Alias, col.Table, "%s: %s", it, col.Name)
			assert.True(t, fam.Allows(col.Name), "%s: %s leaked", it, col.Name)
		}
	}
}

func TestCompile_AlertUsesIncidentPriority(t *testing.T) {
	t.Parallel()

	f := filter.Filter{IssueType: filter.Alert, Across: filter.AlertSeverity, Priorities: []string{"P1"}, Urgencies: []string{"high"}}
	preds, p, err := compile(t, New(nil, sqlb.Postgres), f)
	require.NoError(t, err)
	sql, _ := render(t, preds, p)
	assert.Equal(t, "a.incident_priority = ANY($1::text[])", sql)
}

func TestCompile_AlertRejections(t *testing.T) {
	t.Parallel()

	now := time.Now()
	alert := func(mut func(*filter.Filter)) filter.Filter {
		f := filter.Filter{IssueType: filter.Alert, Across: filter.Service}
		mut(&f)
		return f
	}
	cases := map[string]filter.Filter{
		"office hours": alert(func(f *filter.Filter) {
			f.OfficeHours = &filter.OfficeHours{Start: "09:00", End: "17:00", From: now, To: now}
		}),
		"user ids":        alert(func(f *filter.Filter) { f.UserIDs = []string{svcA} }),
		"user names":      alert(func(f *filter.Filter) { f.UserNames = []string{"ada"} }),
		"user condition":  alert(func(f *filter.Filter) { f.Conditions = map[string]any{"user_id": svcA} }),
		"user scope":      alert(func(f *filter.Filter) { f.UserScope = &filter.UserScope{OURefs: []string{"ou"}} }),
		"across user":     alert(func(f *filter.Filter) { f.Across = filter.UserID }),
		"stack user":      alert(func(f *filter.Filter) { f.Stacks = []filter.Dimension{filter.UserID} }),
		"missing user":    alert(func(f *filter.Filter) { f.MissingFields = map[string]bool{"user_id": true} }),
		"sort by user":    alert(func(f *filter.Filter) { f.Sort = []filter.SortField{{Field: "user_id"}} }),
		"second sort key": alert(func(f *filter.Filter) { f.Sort = []filter.SortField{{Field: "count"}, {Field: "user_id"}} }),
	}
	for name, f := range cases {
		users := &fakeUsers{}
		preds, _, err := compile(t, New(users, sqlb.Postgres), f)
		assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation), name)
		assert.Nil(t, preds, name)
		assert.Zero(t, users.calls, name)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := filter.Filter{
		IssueType:  filter.Incident,
		Across:     filter.UserID,
		CreatedAt:  &filter.TimeRange{From: &from, FromInclusive: true},
		Statuses:   []string{"open", "ack"},
		Conditions: map[string]any{"priority": "P1", "user_id": svcA, "urgency": []string{"High"}, "summary": "x"},
		MissingFields: map[string]bool{
			"resolved_at": true, "assignee_ids": false, "acknowledged_at": true,
		},
	}
	c := New(nil, sqlb.Postgres)
	p1, s1, err := compile(t, c, f)
	require.NoError(t, err)
	p2, s2, err := compile(t, c, f)
	require.NoError(t, err)

	sql1, args1 := render(t, p1, s1)
	sql2, args2 := render(t, p2, s2)
	assert.Equal(t, sql1, sql2)
	assert.Equal(t, args1, args2)
	assert.Equal(t, s1.List(), s2.List())
}

func TestCompile_ScalarInference(t *testing.T) {
	t.Parallel()

	upper := "6F1C2D3E-4B5A-4C6D-8E7F-90A1B2C3D4E5"
	f := filter.Filter{
		IssueType: filter.Incident,
		Across:    filter.Service,
		Conditions: map[string]any{
			"pd_service_id": upper,
			"user_id":       "legacy-user",
			"solve_time":    float64(60),
			"response_time": 12,
			"pd_id":         svcA,
			"assignee_ids":  uuid.MustParse(svcA),
		},
	}
	preds, p, err := compile(t, New(nil, sqlb.Postgres), f)
	require.NoError(t, err)
	sql, args := render(t, preds, p)
	assert.Equal(t,
		"($1::uuid = ANY(i.assignee_ids) AND i.pd_id = $2::text AND i.pd_service_id = $3::uuid"+
			" AND i.response_time = $4::int AND i.solve_time = $5::bigint AND CAST(i.user_id AS text) = $6::text)",
		sql)
	assert.Equal(t, []any{svcA, svcA, svcA, 12, int64(60), "legacy-user"}, args)
}

func TestCompile_ValueErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]any{
		"bool":            true,
		"text on numeric": "abc",
		"mixed set":       []any{"a", 1},
		"float set":       []any{1.5},
	}
	for name, v := range cases {
		f := filter.Filter{IssueType: filter.Incident, Across: filter.Service, Conditions: map[string]any{"solve_time": v}}
		_, _, err := compile(t, New(nil, sqlb.Postgres), f)
		assert.True(t, perr.IsCode(err, perr.ErrorCodeCompilation), name)
	}
}

func TestCompile_FoldAndEmptySets(t *testing.T) {
	t.Parallel()

	f := filter.Filter{
		IssueType:  filter.Incident,
		Across:     filter.Status,
		Urgencies:  []string{"  ＨＩＧＨ "},
		Statuses:   []string{},
		Conditions: map[string]any{"status": "Resolved", "priority": []string{}},
	}
	preds, p, err := compile(t, New(nil, sqlb.Postgres), f)
	require.NoError(t, err)
	sql, args := render(t, preds, p)
	assert.Equal(t, "(lower(i.urgency) = ANY($1::text[]) AND lower(i.status) = $2::text)", sql)
	assert.Equal(t, []any{[]string{"high"}, "resolved"}, args)
}

func TestCompile_RangesAndMissing(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.FixedZone("x", 3600))
	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	f := filter.Filter{
		IssueType:      filter.Incident,
		Across:         filter.Service,
		CreatedAt:      &filter.TimeRange{From: &from, FromInclusive: true},
		AcknowledgedAt: &filter.TimeRange{From: &from, To: &to},
		MissingFields:  map[string]bool{"assignee_ids": true, "resolved_at": false},
	}
	preds, p, err := compile(t, New(nil, sqlb.Postgres), f)
	require.NoError(t, err)
	sql, args := render(t, preds, p)
	assert.Equal(t,
		"(i.created_at >= $1::timestamptz AND i.acknowledged_at > $2::timestamptz AND i.acknowledged_at < $3::timestamptz"+
			" AND (i.assignee_ids IS NULL OR cardinality(i.assignee_ids) = 0) AND i.resolved_at IS NOT NULL)",
		sql)
	assert.Equal(t, from.UTC(), args[0])
	assert.Equal(t, time.UTC, args[0].(time.Time).Location())
}

func TestCompile_OfficeHours(t *testing.T) {
	t.Parallel()

	oh := &filter.OfficeHours{
		Start: "22:00",
		End:   "06:00",
		From:  time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
		To:    time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC),
	}
	f := filter.Filter{IssueType: filter.Incident, Across: filter.Service, OfficeHours: oh}

	preds, p, err := compile(t, New(nil, sqlb.Postgres), f)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	windows, ok := preds[0].(sqlb.Or)
	require.True(t, ok)
	assert.Len(t, windows, 2)

	names := []string{}
	for _, prm := range p.List() {
		names = append(names, prm.Name)
		assert.Equal(t, sqlb.Timestamp, prm.Type)
	}
	assert.Equal(t, []string{"oh_20240304_from", "oh_20240304_to", "oh_20240305_from", "oh_20240305_to"}, names)
	assert.Equal(t, time.Date(2024, 3, 4, 22, 0, 0, 0, time.UTC), p.List()[0].Value)
	assert.Equal(t, time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC), p.List()[1].Value)

	sql, _ := render(t, preds, p)
	assert.Contains(t, sql, "(i.created_at AT TIME ZONE i.time_zone) >= $1::timestamp")

	ex := f.Clone()
	ex.OfficeHours.Exclude = true
	preds, _, err = compile(t, New(nil, sqlb.Postgres), ex)
	require.NoError(t, err)
	_, ok = preds[0].(sqlb.Not)
	assert.True(t, ok)
}

func TestCompile_OfficeHoursErrors(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	bad := func(oh filter.OfficeHours) filter.Filter {
		return filter.Filter{IssueType: filter.Incident, Across: filter.Service, OfficeHours: &oh}
	}

	_, _, err := compile(t, New(nil, sqlb.Postgres), bad(filter.OfficeHours{Start: "9am", End: "17:00", From: now, To: now}))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
	_, _, err = compile(t, New(nil, sqlb.Postgres), bad(filter.OfficeHours{Start: "09:00", End: "17:00", From: now.Add(time.Hour), To: now}))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
	_, _, err = compile(t, New(nil, sqlb.ClickHouse), bad(filter.OfficeHours{Start: "09:00", End: "17:00", From: now, To: now}))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeCompilation))
}

func TestCompile_OfficeHoursSpan(t *testing.T) {
	t.Parallel()

	jan1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	oh := func(to time.Time) filter.Filter {
		return filter.Filter{IssueType: filter.Incident, OfficeHours: &filter.OfficeHours{
			Start: "09:00", End: "17:00", From: jan1, To: to,
		}}
	}

	// 2024 is a leap year: Jan 1 through Dec 31 is exactly the bound
	preds, p, err := compile(t, New(nil, sqlb.Postgres), oh(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Len(t, preds[0].(sqlb.Or), MaxOfficeHoursDays)
	assert.Equal(t, 2*MaxOfficeHoursDays, p.Len())

	_, p, err = compile(t, New(nil, sqlb.Postgres), oh(time.Date(2054, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
	var pe *perr.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "office_hours.to", pe.Field())
	assert.Zero(t, p.Len())

	assert.NoError(t, Check(filter.Filter{IssueType: filter.Incident}))
	assert.Error(t, Check(oh(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
}

func TestCompile_UserScope(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{raw: sqlb.Raw{
		SQL:  `SELECT m.user_id FROM "acme"."ou_user_mappings" m WHERE m.ou_ref = ANY(?)`,
		Args: []sqlb.Arg{{Type: sqlb.TextArray, Value: []string{"ou-1"}}},
	}}
	f := filter.Filter{
		IssueType: filter.Incident,
		Across:    filter.UserID,
		Statuses:  []string{"open"},
		UserScope: &filter.UserScope{OURefs: []string{"ou-1"}},
	}
	preds, p, err := compile(t, New(users, sqlb.Postgres), f)
	require.NoError(t, err)
	sql, args := render(t, preds, p)
	assert.Equal(t,
		`(lower(i.status) = ANY($1::text[]) AND i.user_id IN (SELECT m.user_id FROM "acme"."ou_user_mappings" m WHERE m.ou_ref = ANY($2::text[])))`,
		sql)
	assert.Len(t, args, 2)
	assert.Equal(t, 1, users.calls)

	_, _, err = compile(t, New(nil, sqlb.Postgres), f)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeCompilation))

	boom := errors.New("identity down")
	_, _, err = compile(t, New(&fakeUsers{err: boom}, sqlb.Postgres), f)
	assert.ErrorIs(t, err, boom)
}

func TestCompile_FamilyMismatch(t *testing.T) {
	t.Parallel()

	f := filter.Filter{IssueType: filter.Incident, Across: filter.Service}
	_, err := New(nil, sqlb.Postgres).Compile(context.Background(), "acme", f, family(t, filter.Alert), sqlb.NewParams(""))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeCompilation))
}

func TestCompileScope(t *testing.T) {
	t.Parallel()

	c := New(nil, sqlb.Postgres)
	p := sqlb.NewParams("")
	scope := map[string]any{"status": []string{"Open"}, "priority": "P1", "team": "ignored"}
	preds, err := c.CompileScope(filter.Incident, scope, family(t, filter.Incident), p)
	require.NoError(t, err)

	sql, args := render(t, preds, p)
	assert.Equal(t, "(i.priority = $1::text AND lower(i.status) = ANY($2::text[]))", sql)
	assert.Equal(t, []any{"P1", []string{"open"}}, args)

	_, err = c.CompileScope(filter.Alert, map[string]any{"user_id": svcA}, family(t, filter.Alert), sqlb.NewParams(""))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))

	_, err = c.CompileScope(filter.Alert, scope, family(t, filter.Incident), sqlb.NewParams(""))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeCompilation))
}
