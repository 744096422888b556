// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package memdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/memdb"
)

type row struct {
	Owner string
	Value int
}

/*
TestWithinTx_CommitAndRollback keeps writes of a successful body and drops
writes of a failing one across every table.
*/
func TestWithinTx_CommitAndRollback(t *testing.T) {
	db := memdb.New()
	first := memdb.NewTable[string, row](db)
	second := memdb.NewTable[string, row](db)
	ctx := context.Background()

	require.NoError(t, db.WithinTx(ctx, func(ctx context.Context) error {
		first.Put(ctx, "a", row{Owner: "x", Value: 1})
		second.Put(ctx, "b", row{Owner: "x", Value: 2})
		return nil
	}))

	failure := errors.New("abort")
	err := db.WithinTx(ctx, func(ctx context.Context) error {
		first.Delete(ctx, "a")
		second.Put(ctx, "c", row{Owner: "y"})
		return failure
	})
	assert.ErrorIs(t, err, failure)

	_, found := first.Get(ctx, "a")
	assert.True(t, found)
	_, found = second.Get(ctx, "c")
	assert.False(t, found)
}

/*
TestWithinTx_RollbackOnPanicAndCancel restores state for both abort paths.
*/
func TestWithinTx_RollbackOnPanicAndCancel(t *testing.T) {
	db := memdb.New()
	table := memdb.NewTable[string, row](db)

	assert.Panics(t, func() {
		_ = db.WithinTx(context.Background(), func(ctx context.Context) error {
			table.Put(ctx, "p", row{})
			panic("boom")
		})
	})
	_, found := table.Get(context.Background(), "p")
	assert.False(t, found)

	ctx, cancel := context.WithCancel(context.Background())
	err := db.WithinTx(ctx, func(ctx context.Context) error {
		table.Put(ctx, "c", row{})
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	_, found = table.Get(context.Background(), "c")
	assert.False(t, found)
}

/*
TestTable_ConditionalOperations covers Insert conflicts, Update and DeleteWhere.
*/
func TestTable_ConditionalOperations(t *testing.T) {
	db := memdb.New()
	table := memdb.NewTable[string, row](db)
	ctx := context.Background()

	sameOwner := func(owner string) func(row) bool {
		return func(existing row) bool { return existing.Owner == owner }
	}

	assert.True(t, table.Insert(ctx, "1", row{Owner: "x"}, sameOwner("x")))
	assert.False(t, table.Insert(ctx, "2", row{Owner: "x"}, sameOwner("x")))
	assert.False(t, table.Insert(ctx, "1", row{Owner: "z"}, nil))

	assert.True(t, table.Update(ctx, "1", func(r *row) bool { r.Value = 7; return true }))
	assert.False(t, table.Update(ctx, "missing", func(r *row) bool { return true }))
	updated, _ := table.Get(ctx, "1")
	assert.Equal(t, 7, updated.Value)

	table.Put(ctx, "3", row{Owner: "y"})
	assert.Equal(t, int64(1), table.DeleteWhere(ctx, sameOwner("y")))
	assert.Equal(t, 1, table.Count(ctx, nil))
}

/*
TestTable_DeleteIsExclusive lets exactly one of many concurrent deleters win.
*/
func TestTable_DeleteIsExclusive(t *testing.T) {
	db := memdb.New()
	table := memdb.NewTable[string, row](db)
	table.Put(context.Background(), "k", row{})

	var wins sync.Map
	var group sync.WaitGroup
	for worker := 0; worker < 16; worker++ {
		group.Add(1)
		go func(worker int) {
			defer group.Done()
			if table.Delete(context.Background(), "k") {
				wins.Store(worker, true)
			}
		}(worker)
	}
	group.Wait()

	count := 0
	wins.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 1, count)
}
