// Package repo executes composed insights queries and maps rows to results
package repo

import (
	"context"
	"strconv"
	"time"

	"github.com/linuxautomates/gitsei-sub026/internal/core/compose"
	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	"github.com/linuxautomates/gitsei-sub026/internal/modkit/repokit"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/store"
	"github.com/linuxautomates/gitsei-sub026/internal/services/insights/domain"
)

// StorageRepo runs composed queries against one backend
type StorageRepo interface {
	Buckets(ctx context.Context, c *compose.Composed, q sqlb.Query) ([]filter.Bucket, error)
	Incidents(ctx context.Context, c *compose.Composed, q sqlb.Query) ([]domain.Incident, error)
	Alerts(ctx context.Context, c *compose.Composed, q sqlb.Query) ([]domain.Alert, error)
	Count(ctx context.Context, c *compose.Composed) (int, error)
}

// New returns a binder rendering queries for d
func New(d sqlb.Dialect) repokit.Binder[StorageRepo] {
	return repokit.BindFunc[StorageRepo](func(q repokit.Queryer) StorageRepo {
		return &queryRepo{q: q, d: d}
	})
}

type queryRepo struct {
	q repokit.Queryer
	d sqlb.Dialect
}

// Buckets maps grouped rows; a null key becomes "" with Null set
func (r *queryRepo) Buckets(ctx context.Context, c *compose.Composed, q sqlb.Query) ([]filter.Bucket, error) {
	rows, err := r.rows(ctx, c, q)
	if err != nil {
		return nil, err
	}
	out := make([]filter.Bucket, 0, len(rows))
	for _, m := range rows {
		b := filter.Bucket{
			Key:           key(m["bucket_key"]),
			Null:          m["bucket_key"] == nil,
			AdditionalKey: str(m["bucket_label"]),
			Metrics:       make(map[string]float64, len(c.Calc.Metrics)),
		}
		for _, mt := range c.Calc.Metrics {
			if v, ok := m[mt.Alias].(float64); ok {
				b.Metrics[mt.Name] = v
			} else {
				b.Metrics[mt.Name] = 0
			}
		}
		out = append(out, b)
	}
	return out, nil
}

// Incidents maps list rows of the incident family
func (r *queryRepo) Incidents(ctx context.Context, c *compose.Composed, q sqlb.Query) ([]domain.Incident, error) {
	rows, err := r.rows(ctx, c, q)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Incident, 0, len(rows))
	for _, m := range rows {
		out = append(out, domain.Incident{
			ID:             str(m["id"]),
			ServiceID:      str(m["pd_service_id"]),
			PDID:           str(m["pd_id"]),
			Summary:        str(m["summary"]),
			Priority:       str(m["priority"]),
			Urgency:        str(m["urgency"]),
			Status:         str(m["status"]),
			UserID:         str(m["user_id"]),
			UserName:       str(m["user_name"]),
			AssigneeIDs:    strs(m["assignee_ids"]),
			TimeZone:       str(m["time_zone"]),
			CreatedAt:      tsv(m["created_at"]),
			ResolvedAt:     ts(m["resolved_at"]),
			AcknowledgedAt: ts(m["acknowledged_at"]),
			SolveTime:      i64(m["solve_time"]),
			ResponseTime:   i64(m["response_time"]),
		})
	}
	return out, nil
}

// Alerts maps list rows of the alert family
func (r *queryRepo) Alerts(ctx context.Context, c *compose.Composed, q sqlb.Query) ([]domain.Alert, error) {
	rows, err := r.rows(ctx, c, q)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Alert, 0, len(rows))
	for _, m := range rows {
		out = append(out, domain.Alert{
			ID:               str(m["id"]),
			ServiceID:        str(m["pd_service_id"]),
			IncidentID:       str(m["incident_id"]),
			PDID:             str(m["pd_id"]),
			Summary:          str(m["summary"]),
			Severity:         str(m["severity"]),
			Status:           str(m["status"]),
			IncidentPriority: str(m["incident_priority"]),
			CreatedAt:        tsv(m["created_at"]),
			ResolvedAt:       ts(m["resolved_at"]),
			AcknowledgedAt:   ts(m["acknowledged_at"]),
			SolveTime:        i64(m["solve_time"]),
			ResponseTime:     i64(m["response_time"]),
		})
	}
	return out, nil
}

// Count runs SELECT COUNT(*) over the unwindowed query
func (r *queryRepo) Count(ctx context.Context, c *compose.Composed) (int, error) {
	sql, args, err := sqlb.Render(r.d, c.Count(), c.Params)
	if err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeCompilation, "render count")
	}
	totals, err := store.Many(ctx, r.q, func(row store.Row) (int64, error) {
		var n int64
		return n, row.Scan(&n)
	}, sql, args...)
	if err != nil {
		return 0, perr.FromStore(err, "count")
	}
	if len(totals) == 0 {
		return 0, nil
	}
	return int(totals[0]), nil
}

// rows renders q and scans every row into a column map using c.Types
func (r *queryRepo) rows(ctx context.Context, c *compose.Composed, q sqlb.Query) ([]map[string]any, error) {
	sql, args, err := sqlb.Render(r.d, q, c.Params)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeCompilation, "render query")
	}
	cols := c.Columns()
	out, err := store.Many(ctx, r.q, func(row store.Row) (map[string]any, error) {
		return scanTyped(row, cols, c.Types)
	}, sql, args...)
	if err != nil {
		return nil, perr.FromStore(err, "query insights")
	}
	return out, nil
}

func scanTyped(row store.Row, cols []string, types []sqlb.Type) (map[string]any, error) {
	dest := make([]any, len(cols))
	for i := range cols {
		var t sqlb.Type
		if i < len(types) {
			t = types[i]
		}
		switch t {
		case sqlb.Text:
			dest[i] = new(*string)
		case sqlb.TextArray:
			dest[i] = new([]string)
		case sqlb.Bigint:
			dest[i] = new(*int64)
		case sqlb.Float:
			dest[i] = new(*float64)
		case sqlb.Timestamptz:
			dest[i] = new(*time.Time)
		default:
			dest[i] = new(any)
		}
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m := make(map[string]any, len(cols))
	for i, c := range cols {
		m[c] = unwrap(dest[i])
	}
	return m, nil
}

// unwrap turns a scan destination into its value; SQL NULL becomes nil
func unwrap(d any) any {
	switch x := d.(type) {
	case **string:
		if *x == nil {
			return nil
		}
		return **x
	case *[]string:
		return *x
	case **int64:
		if *x == nil {
			return nil
		}
		return **x
	case **float64:
		if *x == nil {
			return nil
		}
		return **x
	case **time.Time:
		if *x == nil {
			return nil
		}
		return (**x).UTC()
	case *any:
		return *x
	}
	return nil
}

func key(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strs(v any) []string {
	s, _ := v.([]string)
	return s
}

func tsv(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}

func ts(v any) *time.Time {
	t, ok := v.(time.Time)
	if !ok {
		return nil
	}
	return &t
}

func i64(v any) *int64 {
	n, ok := v.(int64)
	if !ok {
		return nil
	}
	return &n
}
