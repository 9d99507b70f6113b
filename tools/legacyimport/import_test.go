package main

import (
	"strings"
	"testing"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{nil, 0, false},
		{int64(1612), 1612, false},
		{[]byte("42"), 42, false},
		{"7", 7, false},
		{float64(3), 3, false},
		{[]byte("x"), 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := toInt64(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("toInt64(%v) = %d, %v; want %d, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestStatsSQL(t *testing.T) {
	cols := statsColumns()
	// 8 scalar columns plus a games/wins pair per format and race
	if len(cols) != 8+4*9*2 {
		t.Fatalf("len(statsColumns()) = %d", len(cols))
	}

	sel := statsSelect(cols)
	if !strings.Contains(sel, "`1x1_1`, `1x1_1w`") || !strings.HasSuffix(sel, "WHERE id > ? ORDER BY id LIMIT ?") {
		t.Errorf("select = %s", sel)
	}

	up := statsUpsert(cols)
	if !strings.Contains(up, `"4x4_9w" = EXCLUDED."4x4_9w"`) {
		t.Errorf("upsert misses the last counter: %s", up)
	}
	if strings.Contains(up, `"player_id" = EXCLUDED`) {
		t.Errorf("upsert overwrites the conflict key: %s", up)
	}
	if !strings.Contains(up, "$80)") {
		t.Errorf("upsert placeholders: %s", up)
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN("dow:secret@tcp(127.0.0.1:3306)/dowstats")
	if err != nil {
		t.Fatalf("mysqlDSN() error = %v", err)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("dsn = %s", dsn)
	}
	if _, err := mysqlDSN(""); err == nil {
		t.Error("empty DSN accepted")
	}
}
