// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb provides an in-memory database/sql driver serving canned
// rows, for tests.
package fakedb // import "github.com/go-lpc/pifi/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

// Query describes the last statement run against the fake database.
type Query struct {
	SQL  string
	Args []driver.Value
}

var state struct {
	mu   sync.Mutex
	rows Rows
	err  error
	last Query
}

// Run serves rows to every query issued while f runs.
// Runs are serialized.
func Run(ctx context.Context, rows Rows, f func(ctx context.Context) error) error {
	return RunErr(ctx, rows, nil, f)
}

// RunErr is like Run, but queries also fail with err when it is non-nil.
func RunErr(ctx context.Context, rows Rows, err error, f func(ctx context.Context) error) error {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.rows = rows
	state.err = err
	state.last = Query{}

	return f(ctx)
}

// Last returns the last query issued from within a Run.
// It must be called from the function given to Run.
func Last() Query {
	return state.last
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{query: query}, nil
}

func (c *Conn) Close() error {
	return nil
}

func (c *Conn) Begin() (driver.Tx, error) {
	panic("not implemented")
}

type Stmt struct {
	query string
}

func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns -1: placeholders are not checked.
func (stmt *Stmt) NumInput() int {
	return -1
}

func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	panic("not implemented")
}

func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	state.last = Query{SQL: stmt.query, Args: args}
	if state.err != nil {
		return nil, state.err
	}

	rows := state.rows
	rows.Values = append([][]driver.Value(nil), rows.Values...)
	return &rows, nil
}

func (stmt *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vs := make([]driver.Value, len(args))
	for i, arg := range args {
		vs[i] = arg.Value
	}
	return stmt.Query(vs)
}

// Rows are the canned results served by the fake database.
type Rows struct {
	Names  []string
	Values [][]driver.Value
}

func (rows *Rows) Columns() []string {
	return rows.Names
}

func (rows *Rows) Close() error {
	return nil
}

func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver           = (*Driver)(nil)
	_ driver.Conn             = (*Conn)(nil)
	_ driver.Stmt             = (*Stmt)(nil)
	_ driver.StmtQueryContext = (*Stmt)(nil)
	_ driver.Rows             = (*Rows)(nil)
)
