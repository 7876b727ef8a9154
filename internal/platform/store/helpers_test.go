package store

import (
	"context"
	"errors"
	"testing"
)

func TestMany(t *testing.T) {
	t.Parallel()

	rs := &memRows{cols: []string{"key", "ct"}, data: [][]any{{"a", int64(2)}, {"b", int64(1)}}}
	q := &memQuerier{rows: rs}
	type kv struct {
		K string
		N int64
	}
	got, err := Many(context.Background(), q, func(r Row) (kv, error) {
		var x kv
		return x, r.Scan(&x.K, &x.N)
	}, "SELECT key, ct FROM t")
	if err != nil {
		t.Fatalf("Many: %v", err)
	}
	if len(got) != 2 || got[0].K != "a" || got[1].N != 1 {
		t.Fatalf("Many = %+v", got)
	}
	if !rs.closed {
		t.Fatalf("rows not closed")
	}

	q.err = errors.New("down")
	if _, err := Many(context.Background(), q, func(Row) (kv, error) { return kv{}, nil }, "SELECT 1"); err == nil {
		t.Fatalf("expected query error")
	}
}

func TestMany_PropagatesRowsErr(t *testing.T) {
	t.Parallel()

	rs := &memRows{cols: []string{"k"}, err: errors.New("stream broke")}
	_, err := Many(context.Background(), &memQuerier{rows: rs}, func(Row) (string, error) { return "", nil }, "SELECT k")
	if err == nil {
		t.Fatalf("expected rows.Err to surface")
	}
}
