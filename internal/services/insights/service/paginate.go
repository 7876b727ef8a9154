package service

import (
	"context"
	"strconv"

	"github.com/linuxautomates/gitsei-sub026/internal/core/compose"
	"github.com/linuxautomates/gitsei-sub026/internal/core/sqlb"
)

// paginate fetches one window and counts only when the window cannot tell the total
// A short page ends the result, so offset plus rows is exact. A full page, or an empty
// page past the first, needs COUNT(*) over the unwindowed query
func paginate[T any](
	ctx context.Context,
	c *compose.Composed,
	page, size int,
	fetch func(context.Context, *compose.Composed, sqlb.Query) ([]T, error),
	count func(context.Context, *compose.Composed) (int, error),
) ([]T, int, error) {
	rows, err := fetch(ctx, c, c.Page(page, size))
	if err != nil {
		return nil, 0, err
	}
	fire := len(rows) == size || (len(rows) == 0 && page > 0)
	countQueries.WithLabelValues(strconv.FormatBool(fire)).Inc()
	if !fire {
		return rows, page*size + len(rows), nil
	}
	total, err := count(ctx, c)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
