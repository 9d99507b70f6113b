package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// MockClickHouseConn hands out MockBatch values and keeps every sent row
type MockClickHouseConn struct {
	mu sync.Mutex

	PrepareErr error
	SendErr    error
	AppendErr  func(row []interface{}) error

	Queries []string
	Rows    [][]interface{}
	Batches int
}

func (m *MockClickHouseConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PrepareErr != nil {
		return nil, m.PrepareErr
	}
	m.Queries = append(m.Queries, query)
	return &MockBatch{conn: m}, nil
}

func (m *MockClickHouseConn) sentRows() [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]interface{}(nil), m.Rows...)
}

type MockBatch struct {
	driver.Batch
	conn *MockClickHouseConn
	rows [][]interface{}
	sent bool
}

func (m *MockBatch) IsSent() bool {
	return m.sent
}

func (m *MockBatch) Rows() int {
	return len(m.rows)
}

func (m *MockBatch) Append(v ...interface{}) error {
	if m.conn.AppendErr != nil {
		if err := m.conn.AppendErr(v); err != nil {
			return err
		}
	}
	m.rows = append(m.rows, v)
	return nil
}

func (m *MockBatch) Send() error {
	m.conn.mu.Lock()
	defer m.conn.mu.Unlock()
	if m.conn.SendErr != nil {
		return m.conn.SendErr
	}
	m.sent = true
	m.conn.Batches++
	m.conn.Rows = append(m.conn.Rows, m.rows...)
	return nil
}

func (m *MockBatch) Abort() error {
	return errors.New("aborted")
}
