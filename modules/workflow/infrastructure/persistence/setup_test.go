package persistence

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	sql  string
	args []any
}

// fakeDB is both the pool and the transaction it hands out. Methods not
// overridden here panic through the nil embedded pgx.Tx.
type fakeDB struct {
	pgx.Tx

	execs   []call
	queries []call
	tags    []string
	execErr error
	rows    []fakeRow
	results [][]any

	begun      int
	committed  int
	rolledBack int
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	d.begun++
	return d, nil
}

func (d *fakeDB) Commit(context.Context) error {
	d.committed++
	return nil
}

func (d *fakeDB) Rollback(context.Context) error {
	d.rolledBack++
	return nil
}

func (d *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execs = append(d.execs, call{sql: sql, args: args})
	if d.execErr != nil {
		return pgconn.CommandTag{}, d.execErr
	}
	tag := "INSERT 0 1"
	if len(d.tags) > 0 {
		tag, d.tags = d.tags[0], d.tags[1:]
	}
	return pgconn.NewCommandTag(tag), nil
}

func (d *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.queries = append(d.queries, call{sql: sql, args: args})
	if len(d.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	row := d.rows[0]
	d.rows = d.rows[1:]
	return row
}

func (d *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.queries = append(d.queries, call{sql: sql, args: args})
	return &fakeRows{values: d.results, idx: -1}, nil
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type fakeRows struct {
	pgx.Rows
	values [][]any
	idx    int
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.values)
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest, r.values[r.idx])
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(values[i]))
	}
	return nil
}

func (d *fakeDB) execSQL() []string {
	out := make([]string, len(d.execs))
	for i, c := range d.execs {
		out[i] = strings.TrimSpace(c.sql)
	}
	return out
}
