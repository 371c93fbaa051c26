package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"data-manager-service/internal/config"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// DB is the data access layer: parameterized statements against one store,
// with failures classified into *Error.
type DB struct {
	db      *sqlx.DB
	dialect Dialect
}

// New wraps an open handle. The dialect follows the handle's driver name.
func New(db *sqlx.DB) (*DB, error) {
	dialect, err := DialectFor(db.DriverName())
	if err != nil {
		return nil, err
	}
	return &DB{db: db, dialect: dialect}, nil
}

// Open connects to the configured store. The ping is attempted
// ConnectRetries times so the process can start before the store is ready.
func Open(ctx context.Context, cfg config.Database) (*DB, error) {
	if _, err := DialectFor(cfg.Driver); err != nil {
		return nil, err
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	raw, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, classify("open", err)
	}
	if cfg.MaxOpenConns > 0 {
		raw.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		raw.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		raw.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	attempts := max(cfg.ConnectRetries, 1)
	for i := 0; i < attempts; i++ {
		err = ping(ctx, raw, cfg.ConnectTimeout)
		if err == nil {
			log.Info().Str("driver", cfg.Driver).Msgf("Connected to database %s", cfg.Name)
			return New(raw)
		}
		log.Warn().Err(err).Msgf("Retry %d: failed to connect to database %s at %s", i+1, cfg.Name, cfg.Host)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			_ = raw.Close()
			return nil, classify("connect", ctx.Err())
		case <-time.After(cfg.RetryDelay):
		}
	}
	_ = raw.Close()
	return nil, &Error{
		Kind: KindConnection,
		Op:   "connect",
		Err:  fmt.Errorf("database %s at %s after %d attempts: %w", cfg.Name, cfg.Host, attempts, err),
	}
}

func ping(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return classify("ping", d.db.PingContext(ctx))
}

// Select runs query and scans every row into dest, a pointer to a slice.
func (d *DB) Select(ctx context.Context, dest any, query string, args ...any) error {
	return classify("select", d.db.SelectContext(ctx, dest, d.db.Rebind(query), args...))
}

// Get scans a single row into dest. A missing row is sql.ErrNoRows.
func (d *DB) Get(ctx context.Context, dest any, query string, args ...any) error {
	return classify("get", d.db.GetContext(ctx, dest, d.db.Rebind(query), args...))
}

func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := d.db.ExecContext(ctx, d.db.Rebind(query), args...)
	return res, classify("exec", err)
}

// ExecScript sends a multi-statement script as one batch, without
// placeholder rebinding.
func (d *DB) ExecScript(ctx context.Context, script string) error {
	_, err := d.db.ExecContext(ctx, script)
	return classify("script", err)
}

// WithTx runs fn in a unit of work. The transaction commits only when fn
// returns nil; any error, a failed commit or a panic rolls it back.
func (d *DB) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *Tx) error) (err error) {
	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		return classify("begin", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error().Err(rbErr).Msg("Error rolling back transaction")
			}
		}
	}()

	if err = fn(&Tx{tx: tx, dialect: d.dialect}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

// Tx is a unit of work opened by WithTx.
type Tx struct {
	tx      *sqlx.Tx
	dialect Dialect
}

func (t *Tx) Select(ctx context.Context, dest any, query string, args ...any) error {
	return classify("select", t.tx.SelectContext(ctx, dest, t.tx.Rebind(query), args...))
}

func (t *Tx) Get(ctx context.Context, dest any, query string, args ...any) error {
	return classify("get", t.tx.GetContext(ctx, dest, t.tx.Rebind(query), args...))
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
	return res, classify("exec", err)
}
