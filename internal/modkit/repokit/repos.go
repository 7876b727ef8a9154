// Package repokit provides common types and helpers for repository implementations
package repokit

import (
	"github.com/linuxautomates/gitsei-sub026/internal/platform/store"
)

// Queryer is the read surface every analytics backend offers
type Queryer = store.Querier

// RowQuerier is the sql surface for repos that need QueryRow or Exec
type RowQuerier = store.RowQuerier

type (
	// Rows are the result set of a query
	Rows = store.Rows

	// Row is a single row result from a query
	Row = store.Row
)
