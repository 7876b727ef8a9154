package compile

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

// fold normalises a categorical value the way lower(col) sees stored values
// a Caser is stateful, so one is built per call
func fold(s string) string {
	s = width.Fold.String(strings.TrimSpace(s))
	return cases.Lower(language.Und).String(norm.NFKC.String(s))
}

// asUUID returns the canonical form of s when it is a hyphenated uuid
func asUUID(s string) (string, bool) {
	if len(s) != 36 {
		return "", false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// scalar infers the bind type of a single value from its runtime type
func scalar(field string, v any) (sqlb.Type, any, error) {
	switch x := v.(type) {
	case string:
		if u, ok := asUUID(x); ok {
			return sqlb.UUID, u, nil
		}
		return sqlb.Text, x, nil
	case uuid.UUID:
		return sqlb.UUID, x.String(), nil
	case int:
		return sqlb.Int, x, nil
	case int32:
		return sqlb.Int, int(x), nil
	case int64:
		return sqlb.Bigint, x, nil
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return sqlb.Bigint, int64(x), nil
		}
		return sqlb.Float, x, nil
	}
	return 0, nil, perr.Compilationf("%s: unsupported value type %T", field, v)
}

// collection infers the array bind type of a membership value
// ok is false when v is not a collection; an empty collection yields a nil value
func collection(field string, v any) (sqlb.Type, any, bool, error) {
	var items []any
	switch x := v.(type) {
	case []string:
		for _, s := range x {
			items = append(items, s)
		}
	case []uuid.UUID:
		for _, u := range x {
			items = append(items, u)
		}
	case []int:
		for _, n := range x {
			items = append(items, n)
		}
	case []int64:
		for _, n := range x {
			items = append(items, n)
		}
	case []any:
		items = x
	default:
		return 0, nil, false, nil
	}
	if len(items) == 0 {
		return 0, nil, true, nil
	}

	var strs []string
	var nums []int64
	allUUID := true
	for _, it := range items {
		t, val, err := scalar(field, it)
		if err != nil {
			return 0, nil, true, err
		}
		switch t {
		case sqlb.UUID:
			strs = append(strs, val.(string))
		case sqlb.Text:
			allUUID = false
			strs = append(strs, val.(string))
		case sqlb.Int:
			nums = append(nums, int64(val.(int)))
		case sqlb.Bigint:
			nums = append(nums, val.(int64))
		default:
			return 0, nil, true, perr.Compilationf("%s: unsupported element type %T", field, it)
		}
	}
	switch {
	case len(strs) > 0 && len(nums) > 0:
		return 0, nil, true, perr.Compilationf("%s: mixed element types", field)
	case len(nums) > 0:
		return sqlb.BigintArray, nums, true, nil
	case allUUID:
		return sqlb.UUIDArray, strs, true, nil
	}
	return sqlb.TextArray, strs, true, nil
}

func foldAll(vs []string) []string {
	out := make([]string, len(vs))
	for i, s := range vs {
		out[i] = fold(s)
	}
	return out
}
