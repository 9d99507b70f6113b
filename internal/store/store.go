// Package store implements the persistence interfaces of the logic package
// on PostgreSQL (pgx) and Redis.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/logic"
)

var (
	_ logic.PlayerStore       = (*PlayerStore)(nil)
	_ logic.RatingStore       = (*RatingStore)(nil)
	_ logic.MatchStore        = (*MatchStore)(nil)
	_ logic.CatalogStore      = (*CatalogStore)(nil)
	_ logic.TxRunner          = (*Postgres)(nil)
	_ logic.MatchLocker       = (*RedisLocker)(nil)
	_ logic.LadderInvalidator = (*LadderCache)(nil)
	_ logic.LadderPageCache   = (*LadderCache)(nil)
)

// DB is the subset of pgxpool.Pool used by the stores
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TxBeginner is implemented by pgxpool.Pool and pgx.Conn
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Postgres bundles the player, rating, match and catalog stores over one pool.
type Postgres struct {
	Players *PlayerStore
	Ratings *RatingStore
	Matches *MatchStore
	Catalog *CatalogStore

	db     DB
	logger *zap.SugaredLogger
}

func NewPostgres(db DB, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return bind(db, logger.Sugar())
}

func bind(db DB, logger *zap.SugaredLogger) *Postgres {
	return &Postgres{
		Players: &PlayerStore{db: db, logger: logger},
		Ratings: &RatingStore{db: db, logger: logger},
		Matches: &MatchStore{db: db, logger: logger},
		Catalog: &CatalogStore{db: db},
		db:      db,
		logger:  logger,
	}
}

// WithTx runs fn with stores bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (p *Postgres) WithTx(ctx context.Context, fn func(ctx context.Context, tx logic.IngestStores) error) error {
	beginner, ok := p.db.(TxBeginner)
	if !ok {
		return errors.New("store: connection cannot begin transactions")
	}
	return pgx.BeginTxFunc(ctx, beginner, pgx.TxOptions{}, func(tx pgx.Tx) error {
		bound := bind(tx, p.logger)
		return fn(ctx, logic.IngestStores{Players: bound.Players, Ratings: bound.Ratings, Matches: bound.Matches})
	})
}

// notFound reports whether err is a pgx empty result
func notFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// placeholders returns "$from, $from+1, ..." for n arguments.
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}

func quote(column string) string {
	return pq.QuoteIdentifier(column)
}
