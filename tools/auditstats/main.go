// Command auditstats prints the ingest outcomes of the last hours from the
// ClickHouse audit table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

func main() {
	hours := flag.Int("hours", 24, "window in hours")
	mod := flag.String("mod", "", "only this mod technical name")
	flag.Parse()

	chURL := os.Getenv("CLICKHOUSE_URL")
	if chURL == "" {
		chURL = "clickhouse://localhost:9000/dowstats"
	}

	opts, err := clickhouse.ParseDSN(chURL)
	if err != nil {
		log.Fatalf("Failed to parse DSN: %v", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	query := `
		SELECT
			endpoint,
			outcome,
			count() AS reports,
			countIf(length(degraded) > 0) AS degraded
		FROM dowstats.ingest_reports
		WHERE received_at >= now() - toIntervalHour(?)
		  AND (? = '' OR mod = ?)
		GROUP BY endpoint, outcome
		ORDER BY endpoint, reports DESC
	`
	rows, err := conn.Query(ctx, query, *hours, *mod, *mod)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENDPOINT\tOUTCOME\tREPORTS\tDEGRADED")
	for rows.Next() {
		var endpoint, outcome string
		var reports, degraded uint64
		if err := rows.Scan(&endpoint, &outcome, &reports, &degraded); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", endpoint, outcome, reports, degraded)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Rows failed: %v", err)
	}
	_ = w.Flush()
}
