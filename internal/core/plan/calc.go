// Package plan maps calculations and grouping dimensions to query fragments
package plan

import (
	"github.com/linuxautomates/gitsei-sub026/internal/core/filter"
	"github.com/linuxautomates/gitsei-sub026/internal/core/schema"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

// Metric is one aggregate output column
type Metric struct {
	Name  string // key in Bucket.Metrics
	Alias string // output column
	Expr  sqlb.Expr
}

// Calculation is the aggregate projection of a calculation kind
type Calculation struct {
	Kind    filter.Calculation
	Metrics []Metric
	Default sqlb.Order
}

// Metric looks up a metric by name
func (c Calculation) Metric(name string) (Metric, bool) {
	for _, m := range c.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// PlanCalculation returns the projection for calc over rows aliased alias
func PlanCalculation(calc filter.Calculation, fam *schema.Family, alias string) (Calculation, error) {
	count := Metric{
		Name:  filter.MetricCount,
		Alias: "ct",
		Expr:  sqlb.AsFloat{E: sqlb.Agg{Fn: "COUNT", E: sqlb.C(alias, "id"), Distinct: true}},
	}
	switch calc {
	case filter.Count:
		return Calculation{
			Kind:    calc,
			Metrics: []Metric{count},
			Default: sqlb.Order{E: sqlb.C("", count.Alias), Desc: true},
		}, nil
	case filter.ResolutionTime, filter.ResponseTime:
		name, ok := fam.Durations[calc]
		if !ok {
			return Calculation{}, perr.Compilationf("%s has no duration column for %s", fam.Table, calc)
		}
		d := sqlb.C(alias, name)
		return Calculation{
			Kind: calc,
			Metrics: []Metric{
				count,
				{Name: filter.MetricMin, Alias: "mn", Expr: sqlb.AsFloat{E: sqlb.Agg{Fn: "MIN", E: d}}},
				{Name: filter.MetricMax, Alias: "mx", Expr: sqlb.AsFloat{E: sqlb.Agg{Fn: "MAX", E: d}}},
				{Name: filter.MetricMedian, Alias: "median", Expr: sqlb.AsFloat{E: sqlb.Percentile{E: d, P: 0.5}}},
				{Name: filter.MetricP90, Alias: "p90", Expr: sqlb.AsFloat{E: sqlb.Percentile{E: d, P: 0.9}}},
				{Name: filter.MetricMean, Alias: "mean", Expr: sqlb.AsFloat{E: sqlb.Agg{Fn: "AVG", E: d}}},
			},
			Default: sqlb.Order{E: sqlb.C("", "mx"), Desc: true},
		}, nil
	}
	return Calculation{}, perr.Compilationf("unknown calculation %q", calc)
}
