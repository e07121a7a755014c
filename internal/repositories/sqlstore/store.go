// Package sqlstore provides the SQLite / libSQL backed repositories. Unlike the
// Mongo store it claims tickets inside a real transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/ArowuTest/raffle-backend/internal/repositories/sqlstore/migrations"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// DB is an open SQL store
type DB struct {
	sqlDB  *sql.DB
	remote bool
}

var remoteSchemes = []string{"libsql://", "wss://", "ws://", "https://", "http://"}

// Open opens a local SQLite file or, for libsql:// style URLs, a remote libSQL
// database, and applies the embedded migrations.
func Open(ctx context.Context, dsn string) (*DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}

	driver, source, remote := "sqlite", "", false
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(dsn, scheme) {
			driver, source, remote = "libsql", dsn, true
			break
		}
	}
	if !remote {
		source = filepath.Clean(strings.TrimPrefix(dsn, "file:")) +
			"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	}

	sqlDB, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &DB{sqlDB: sqlDB, remote: remote}, nil
}

// Close closes the database handle.
func (db *DB) Close() error {
	if db == nil || db.sqlDB == nil {
		return nil
	}
	return db.sqlDB.Close()
}

// Remote reports whether db talks to a libSQL server rather than a local file.
func (db *DB) Remote() bool {
	return db.remote
}

// Store wires every SQL repository onto db
func (db *DB) Store(defaultGateway string) *repositories.Store {
	return &repositories.Store{
		Raffles:       &raffleRepository{db: db.sqlDB},
		Tickets:       &ticketRepository{db: db.sqlDB},
		Draws:         &drawRepository{db: db.sqlDB},
		Notifications: &notificationRepository{db: db.sqlDB},
		AdminUsers:    &adminUserRepository{db: db.sqlDB},
		Settings:      &settingsRepository{db: db.sqlDB, defaultGateway: defaultGateway},
		Close: func(context.Context) error {
			return db.Close()
		},
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func timePtr(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	// remote libSQL errors only carry the message
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repositories.ErrNotFound
	}
	return err
}
