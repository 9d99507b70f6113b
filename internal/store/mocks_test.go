package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

type execCall struct {
	SQL  string
	Args []any
}

// MockDB records Exec calls and delegates reads to the Func fields
type MockDB struct {
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	Execs []execCall
}

func (m *MockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return &MockRows{}, nil
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(ctx, sql, args...)
	}
	return &MockRow{Err: pgx.ErrNoRows}
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.Execs = append(m.Execs, execCall{SQL: sql, Args: args})
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

// MockRow scans through ScanFunc, or fails with Err
type MockRow struct {
	ScanFunc func(dest ...any) error
	Err      error
}

func (r *MockRow) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	if r.ScanFunc != nil {
		return r.ScanFunc(dest...)
	}
	return nil
}

// MockRows yields one row per ScanFuncs entry
type MockRows struct {
	ScanFuncs []func(dest ...any) error
	idx       int
}

func (r *MockRows) Close()                                       {}
func (r *MockRows) Err() error                                   { return nil }
func (r *MockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *MockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *MockRows) Values() ([]any, error)                       { return nil, nil }
func (r *MockRows) RawValues() [][]byte                          { return nil }
func (r *MockRows) Conn() *pgx.Conn                              { return nil }

func (r *MockRows) Next() bool {
	if r.idx >= len(r.ScanFuncs) {
		return false
	}
	r.idx++
	return true
}

func (r *MockRows) Scan(dest ...any) error {
	return r.ScanFuncs[r.idx-1](dest...)
}

// MockRedis is an in-memory stand-in for the handful of commands the store uses
type MockRedis struct {
	Values  map[string]string
	SetNXFn func(key string) bool
	Evals   int
}

func newMockRedis() *MockRedis {
	return &MockRedis{Values: map[string]string{}}
}

func (m *MockRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if m.SetNXFn != nil {
		return redis.NewBoolResult(m.SetNXFn(key), nil)
	}
	if _, ok := m.Values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.Values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (m *MockRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.Evals++
	if m.Values[keys[0]] == args[0] {
		delete(m.Values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (m *MockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.Values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.Values[key] = string(v)
	case string:
		m.Values[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *MockRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	n, _ := strconv.ParseInt(m.Values[key], 10, 64)
	n++
	m.Values[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

// MockTxDB hands out MockTx values that run statements on the embedded MockDB
type MockTxDB struct {
	MockDB
	BeginErr error
	Tx       *MockTx
}

func (m *MockTxDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	m.Tx = &MockTx{DB: &m.MockDB}
	return m.Tx, nil
}

// MockTx records whether the transaction committed or rolled back
type MockTx struct {
	pgx.Tx
	DB         *MockDB
	Committed  bool
	RolledBack bool
}

func (t *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.DB.Query(ctx, sql, args...)
}

func (t *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.DB.QueryRow(ctx, sql, args...)
}

func (t *MockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.DB.Exec(ctx, sql, args...)
}

func (t *MockTx) Commit(ctx context.Context) error {
	if t.Committed || t.RolledBack {
		return pgx.ErrTxClosed
	}
	t.Committed = true
	return nil
}

func (t *MockTx) Rollback(ctx context.Context) error {
	if t.Committed || t.RolledBack {
		return pgx.ErrTxClosed
	}
	t.RolledBack = true
	return nil
}
