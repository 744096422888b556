// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package memdb provides an in-process transactional table set.

It backs the in-memory stores used by local development and the service
tests, and honours the same scoped-transaction contract as the Postgres
backend: every write inside [DB.WithinTx] becomes visible together or not at all.

Concurrency:

  - All tables of one [DB] share a single mutex, so a transaction is fully serialized.
  - Calls made with the context handed to the transaction body reuse the held lock.
  - The transaction body must not hand its context to other goroutines.
*/
package memdb

import (
	"context"
	"maps"
	"sync"
)

// snapshotter is implemented by every table registered with a [DB].
type snapshotter interface {
	snapshot() any
	restore(state any)
}

// txKey marks a context as running inside a transaction of a specific DB.
type txKey struct{}

// DB is a set of tables guarded by one lock.
type DB struct {
	mu     sync.Mutex
	tables []snapshotter
}

// New returns an empty DB.
func New() *DB {
	return &DB{}
}

func (db *DB) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*DB)
	return owner == db
}

// run executes fn under the DB lock unless ctx already holds it.
func (db *DB) run(ctx context.Context, fn func()) {
	if db.inTx(ctx) {
		fn()
		return
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	fn()
}

/*
WithinTx runs fn with exclusive access to every table of the DB.

Description: Table state is snapshotted before fn runs and restored when fn
returns an error, panics, or the context is cancelled before it completes.
Nested calls join the outer transaction.

Parameters:
  - ctx: context.Context
  - fn: func(ctx) error (must use the ctx it receives)

Returns:
  - error: fn's error or the context error
*/
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if db.inTx(ctx) {
		return fn(ctx)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	states := make([]any, len(db.tables))
	for index, table := range db.tables {
		states[index] = table.snapshot()
	}

	committed := false
	defer func() {
		if !committed {
			for index, table := range db.tables {
				table.restore(states[index])
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	committed = true
	return nil
}

// # Tables

// Table is a keyed collection of value rows.
//
// Rows are stored and returned by value, so callers never alias table state.
type Table[K comparable, V any] struct {
	db   *DB
	rows map[K]V
}

// NewTable registers a new empty table with db.
func NewTable[K comparable, V any](db *DB) *Table[K, V] {
	table := &Table[K, V]{db: db, rows: make(map[K]V)}

	db.mu.Lock()
	db.tables = append(db.tables, table)
	db.mu.Unlock()

	return table
}

func (table *Table[K, V]) snapshot() any {
	return maps.Clone(table.rows)
}

func (table *Table[K, V]) restore(state any) {
	table.rows = state.(map[K]V)
}

// Get returns the row stored under key.
func (table *Table[K, V]) Get(ctx context.Context, key K) (row V, found bool) {
	table.db.run(ctx, func() {
		row, found = table.rows[key]
	})
	return row, found
}

// Put inserts or replaces the row under key.
func (table *Table[K, V]) Put(ctx context.Context, key K, row V) {
	table.db.run(ctx, func() {
		table.rows[key] = row
	})
}

// Insert stores row under key unless any existing row makes conflict return true.
// It reports whether the row was stored.
func (table *Table[K, V]) Insert(ctx context.Context, key K, row V, conflict func(existing V) bool) (inserted bool) {
	table.db.run(ctx, func() {
		if _, taken := table.rows[key]; taken {
			return
		}
		for _, existing := range table.rows {
			if conflict != nil && conflict(existing) {
				return
			}
		}
		table.rows[key] = row
		inserted = true
	})
	return inserted
}

// Update applies change to the row under key when it exists and change
// returns true. It reports whether the row was rewritten.
func (table *Table[K, V]) Update(ctx context.Context, key K, change func(row *V) bool) (updated bool) {
	table.db.run(ctx, func() {
		row, found := table.rows[key]
		if !found || !change(&row) {
			return
		}
		table.rows[key] = row
		updated = true
	})
	return updated
}

// Delete removes the row under key and reports whether it existed.
func (table *Table[K, V]) Delete(ctx context.Context, key K) (deleted bool) {
	table.db.run(ctx, func() {
		if _, deleted = table.rows[key]; deleted {
			delete(table.rows, key)
		}
	})
	return deleted
}

// Find returns the first row matching match.
func (table *Table[K, V]) Find(ctx context.Context, match func(row V) bool) (row V, found bool) {
	table.db.run(ctx, func() {
		for _, candidate := range table.rows {
			if match(candidate) {
				row, found = candidate, true
				return
			}
		}
	})
	return row, found
}

// DeleteWhere removes every row matching match and returns how many were removed.
func (table *Table[K, V]) DeleteWhere(ctx context.Context, match func(row V) bool) (count int64) {
	table.db.run(ctx, func() {
		for key, row := range table.rows {
			if match(row) {
				delete(table.rows, key)
				count++
			}
		}
	})
	return count
}

// Count returns how many rows match match. A nil match counts every row.
func (table *Table[K, V]) Count(ctx context.Context, match func(row V) bool) (count int) {
	table.db.run(ctx, func() {
		for _, row := range table.rows {
			if match == nil || match(row) {
				count++
			}
		}
	})
	return count
}
