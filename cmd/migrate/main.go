// Command migrate applies the PostgreSQL schema in migrations/postgres.
//
//	migrate up
//	migrate down [steps]
//	migrate version
//	migrate force <version>
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("POSTGRES_URL"))
	if dbURL == "" {
		log.Fatal("POSTGRES_URL is required")
	}

	dir, err := migrationsDir()
	if err != nil {
		log.Fatalw("Migration directory not found", "error", err)
	}
	sourceURL := "file://" + filepath.ToSlash(dir)

	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		log.Fatalw("Failed to create migrator", "error", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warnw("Failed to close migrator", "source", srcErr, "db", dbErr)
		}
	}()

	switch cmd := strings.ToLower(os.Args[1]); cmd {
	case "up":
		if err := ignoreNoChange(m.Up()); err != nil {
			log.Fatalw("Migration failed", "error", err)
		}
		log.Infow("Migrations applied", "source", sourceURL)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps <= 0 {
				log.Fatalw("Down steps must be a positive integer", "value", os.Args[2])
			}
		}
		if err := ignoreNoChange(m.Steps(-steps)); err != nil {
			log.Fatalw("Rollback failed", "error", err)
		}
		log.Infow("Rolled back", "steps", steps)
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("version: none")
			return
		}
		if err != nil {
			log.Fatalw("Failed to read version", "error", err)
		}
		fmt.Printf("version: %d\ndirty: %t\n", version, dirty)
	case "force":
		if len(os.Args) < 3 {
			log.Fatal("force requires a version argument")
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil || version < -1 {
			log.Fatalw("Invalid version", "value", os.Args[2])
		}
		if err := m.Force(version); err != nil {
			log.Fatalw("Force failed", "version", version, "error", err)
		}
		log.Infow("Forced version", "version", version)
	default:
		printUsage()
		os.Exit(2)
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// migrationsDir prefers MIGRATIONS_DIR and falls back to the repository layout.
func migrationsDir() (string, error) {
	candidates := []string{
		strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")),
		"./migrations/postgres",
		"/app/migrations/postgres",
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, nil
		}
	}
	return "", errors.New("checked MIGRATIONS_DIR, ./migrations/postgres, /app/migrations/postgres")
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s <up|down|version|force> [args]\n", name)
	fmt.Fprintf(os.Stderr, "  %s down 1\n", name)
	fmt.Fprintf(os.Stderr, "  %s force 1\n", name)
}
