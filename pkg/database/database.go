package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record was changed concurrently")
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgFKViolation     = "23503"
)

func New(addr, database, user, password string) (db *sqlx.DB, close func() error, err error) {
	return Open(fmt.Sprintf("postgres://%s:%s@%s/%s", user, password, addr, database))
}

func Open(url string) (db *sqlx.DB, close func() error, err error) {
	db, err = sqlx.Open("pgx", url)
	if err != nil {
		return nil, nil, err
	}

	// these params are set assuming that max_connections are set to 200-250
	db.SetMaxOpenConns(150)
	db.SetMaxIdleConns(75)
	db.SetConnMaxLifetime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, nil, err
	}

	return db, db.Close, nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgCheckViolation, pgFKViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
	}

	return err
}

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	db       *sqlx.DB
	attempts KeepAttemptRepository
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, attempts: &KeepAttemptDatabase{db}}
}

func (p *Postgres) Vinyls() VinylRepository             { return &VinylDatabase{p.db} }
func (p *Postgres) Reservations() ReservationRepository { return &ReservationDatabase{p.db} }
func (p *Postgres) Wishlist() WishlistRepository        { return &WishlistDatabase{p.db} }
func (p *Postgres) Users() UserRepository               { return &UserDatabase{p.db} }
func (p *Postgres) KeepAttempts() KeepAttemptRepository { return p.attempts }

func (p *Postgres) RunInTx(ctx context.Context, fn TxFunc) error {
	return WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		return fn(ctx, txRepositories{tx})
	})
}

type txRepositories struct {
	tx *sqlx.Tx
}

func (r txRepositories) Vinyls() VinylRepository             { return &VinylDatabase{r.tx} }
func (r txRepositories) Reservations() ReservationRepository { return &ReservationDatabase{r.tx} }
func (r txRepositories) Wishlist() WishlistRepository        { return &WishlistDatabase{r.tx} }
func (r txRepositories) Users() UserRepository               { return &UserDatabase{r.tx} }
