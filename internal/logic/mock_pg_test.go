package logic

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type queryCall struct {
	SQL  string
	Args []any
}

// MockPool records statements and delegates to the Func fields
type MockPool struct {
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row

	Queries   []queryCall
	RowCalls  []queryCall
	ExecCalls int
}

func (m *MockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.Queries = append(m.Queries, queryCall{sql, args})
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return &MockRows{}, nil
}

func (m *MockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.RowCalls = append(m.RowCalls, queryCall{sql, args})
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(ctx, sql, args...)
	}
	return &MockRow{Err: pgx.ErrNoRows}
}

func (m *MockPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.ExecCalls++
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

// MockRow assigns Values to the scan destinations in order
type MockRow struct {
	Values []any
	Err    error
}

func (r *MockRow) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	for i, v := range r.Values {
		if v != nil && i < len(dest) {
			assign(dest[i], v)
		}
	}
	return nil
}

// MockRows yields one MockRow per entry of Data
type MockRows struct {
	Data [][]any
	idx  int
}

func (r *MockRows) Close()                                       {}
func (r *MockRows) Err() error                                   { return nil }
func (r *MockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *MockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *MockRows) Values() ([]any, error)                       { return nil, nil }
func (r *MockRows) RawValues() [][]byte                          { return nil }
func (r *MockRows) Conn() *pgx.Conn                              { return nil }

func (r *MockRows) Next() bool {
	if r.idx >= len(r.Data) {
		return false
	}
	r.idx++
	return true
}

func (r *MockRows) Scan(dest ...any) error {
	return (&MockRow{Values: r.Data[r.idx-1]}).Scan(dest...)
}

func assign(dest interface{}, val interface{}) {
	// Simple reflection to assign value to pointer
	v := reflect.ValueOf(dest).Elem()
	v.Set(reflect.ValueOf(val))
}
