// Package sqlite provides a SQLite-backed draw store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/logger"
	"github.com/gravadigital/wishdraw-api/internal/storage/sqlite/migrations"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories need
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists participants and wishlists in SQLite. Transactions begin
// with an immediate lock and the pool holds a single connection, so atomic
// units never interleave.
type Store struct {
	sqlDB *sql.DB
	log   *log.Logger
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	l := logger.Repository("sqlite")
	l.Info("SQLite store opened", "path", cleanPath)
	return &Store{sqlDB: sqlDB, log: l}, nil
}

// Participants returns a repository bound to the connection pool
func (s *Store) Participants() draw.ParticipantRepository {
	return &participantRepository{q: s.sqlDB, log: s.log}
}

// Wishlists returns a repository bound to the connection pool
func (s *Store) Wishlists() draw.WishlistRepository {
	return &wishlistRepository{q: s.sqlDB, log: s.log}
}

// Atomically runs fn inside one transaction
func (s *Store) Atomically(ctx context.Context, fn func(repos draw.Repositories) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(txRepositories{tx: tx, log: s.log}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Health pings the database
func (s *Store) Health(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

// Progress reads the draw_progress view in one statement
func (s *Store) Progress(ctx context.Context) (draw.Progress, error) {
	var p draw.Progress
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT participants, participants_drawn, wishlists, wishlists_claimed FROM draw_progress`,
	).Scan(&p.Participants, &p.ParticipantsDrawn, &p.Wishlists, &p.WishlistsClaimed)
	if err != nil {
		return draw.Progress{}, fmt.Errorf("read draw progress: %w", err)
	}
	return p, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

type txRepositories struct {
	tx  *sql.Tx
	log *log.Logger
}

func (r txRepositories) Participants() draw.ParticipantRepository {
	return &participantRepository{q: r.tx, log: r.log}
}

func (r txRepositories) Wishlists() draw.WishlistRepository {
	return &wishlistRepository{q: r.tx, log: r.log}
}

func constraintCode(err error) (int, bool) {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code(), true
	}
	return 0, false
}

func isUniqueViolation(err error) bool {
	if code, ok := constraintCode(err); ok {
		switch code {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if code, ok := constraintCode(err); ok && code == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

func isCheckViolation(err error) bool {
	if code, ok := constraintCode(err); ok && code == sqlite3lib.SQLITE_CONSTRAINT_CHECK {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "check constraint failed")
}

var (
	_ draw.Store          = (*Store)(nil)
	_ draw.ProgressReader = (*Store)(nil)
	_ draw.Repositories   = txRepositories{}
)
