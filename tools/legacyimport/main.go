// Command legacyimport copies seasons, servers, mods, players, rating rows and bans
// from the legacy MySQL database into PostgreSQL. Rows are upserted by id,
// so the import can be re-run.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	batchSize := flag.Int("batch", 1000, "rows per batch")
	skipStats := flag.Bool("skip-stats", false, "do not copy players_stats")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()
	_ = godotenv.Load()

	dsn, err := mysqlDSN(os.Getenv("LEGACY_MYSQL_DSN"))
	if err != nil {
		log.Fatalw("Invalid LEGACY_MYSQL_DSN", "error", err)
	}
	pgURL := os.Getenv("POSTGRES_URL")
	if pgURL == "" {
		log.Fatal("POSTGRES_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		log.Fatalw("Failed to connect to MySQL", "error", err)
	}
	defer src.Close()

	dst, err := pgxpool.New(ctx, pgURL)
	if err != nil {
		log.Fatalw("Failed to connect to PostgreSQL", "error", err)
	}
	defer dst.Close()

	imp := &importer{src: src, dst: dst, log: log, batchSize: *batchSize}
	steps := []struct {
		name string
		run  func(context.Context) (int, error)
	}{
		{"seasons", imp.importSeasons},
		{"servers", imp.importServers},
		{"mods", imp.importMods},
		{"players", imp.importPlayers},
		{"players_stats", imp.importStats},
		{"players_banned", imp.importBans},
	}
	for _, step := range steps {
		if step.name == "players_stats" && *skipStats {
			continue
		}
		n, err := step.run(ctx)
		if err != nil {
			log.Fatalw("Import failed", "table", step.name, "copied", n, "error", err)
		}
		log.Infow("Imported table", "table", step.name, "rows", n)
	}

	if err := imp.resetSequences(ctx); err != nil {
		log.Fatalw("Failed to reset sequences", "error", err)
	}
	log.Info("Legacy import complete")
}
