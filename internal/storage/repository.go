package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"earntracker/internal/core"
)

const memoryDSN = ":memory:"

// SQLiteRepository is the record store. All entities are scoped by user id.
type SQLiteRepository struct {
	db *sqlx.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath != memoryDSN {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One connection: writers serialize and an in-memory database survives
	// for the lifetime of the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newRepository(db), nil
}

func newRepository(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// DB exposes the underlying handle for maintenance commands.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db.DB
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside one transaction. Any failure rolls back and is
// reported as core.ErrTransactionFailure.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", core.ErrTransactionFailure, err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w: rollback failed: %v (original error: %w)", core.ErrTransactionFailure, rbErr, err)
		}
		return fmt.Errorf("%w: %w", core.ErrTransactionFailure, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", core.ErrTransactionFailure, err)
	}
	return nil
}

func selectAll[T any](ctx context.Context, q sqlx.QueryerContext, b sq.Sqlizer) ([]T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	out := []T{}
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func getOne[T any](ctx context.Context, q sqlx.QueryerContext, b sq.Sqlizer) (T, error) {
	var out T
	query, args, err := b.ToSql()
	if err != nil {
		return out, fmt.Errorf("build query: %w", err)
	}
	if err := sqlx.GetContext(ctx, q, &out, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, core.ErrNotFound
		}
		return out, err
	}
	return out, nil
}

func execSQL(ctx context.Context, e sqlx.ExecerContext, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return e.ExecContext(ctx, query, args...)
}

// execOne runs a statement that must touch exactly one owned row.
func execOne(ctx context.Context, e sqlx.ExecerContext, b sq.Sqlizer) error {
	res, err := execSQL(ctx, e, b)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func insertID(ctx context.Context, e sqlx.ExecerContext, b sq.InsertBuilder) (int64, error) {
	res, err := execSQL(ctx, e, b)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

// mapConstraint turns SQLite constraint failures into core sentinels.
func mapConstraint(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	code, msg := se.Code(), se.Error()
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "UNIQUE"):
		return fmt.Errorf("%w: %w", core.ErrUserExists, err)
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
		code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "FOREIGN KEY"):
		return fmt.Errorf("%w: owner: %w", core.ErrNotFound, err)
	}
	return err
}

// touch refreshes updated_at on partial updates.
func touch(set map[string]any) map[string]any {
	set["updated_at"] = sq.Expr("CURRENT_TIMESTAMP")
	return set
}

func owned(userID, id int64) sq.Eq {
	return sq.Eq{"id": id, "user_id": userID}
}
