package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
	sqlite3 "modernc.org/sqlite/lib"

	"outfit-db-api/internal/query"
)

// sqliteSchema creates the outfits table. JSON documents are stored as TEXT.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS outfits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		unique_id INTEGER NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		price INTEGER NOT NULL DEFAULT 0,
		accessory_data TEXT NOT NULL,
		serialized_description TEXT DEFAULT '{}',
		other_metadata TEXT DEFAULT '{}',
		views INTEGER NOT NULL DEFAULT 0,
		favourites INTEGER NOT NULL DEFAULT 0,
		upload_time DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outfits_unique_id ON outfits(unique_id)`,
	`CREATE INDEX IF NOT EXISTS idx_outfits_name ON outfits(name COLLATE NOCASE)`,
	`CREATE INDEX IF NOT EXISTS idx_outfits_upload_time ON outfits(upload_time)`,
	`CREATE INDEX IF NOT EXISTS idx_outfits_views ON outfits(views)`,
	`CREATE INDEX IF NOT EXISTS idx_outfits_favourites ON outfits(favourites)`,
	`CREATE INDEX IF NOT EXISTS idx_outfits_price ON outfits(price)`,
}

var (
	registerLowerOnce sync.Once
	registerLowerErr  error
)

// registerUnicodeLower installs query.SQLiteLowerFunc for every SQLite
// connection opened afterwards.
func registerUnicodeLower() error {
	registerLowerOnce.Do(func() {
		registerLowerErr = sqlite.RegisterDeterministicScalarFunction(query.SQLiteLowerFunc, 1, unicodeLower)
	})
	return registerLowerErr
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// NewSQLiteOutfitRepository opens (or creates) an SQLite outfit database.
// dbPath is the path to the database file (e.g., "./data/outfits.db").
func NewSQLiteOutfitRepository(dbPath string, logger *zap.Logger) (*SQLOutfitRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if err := registerUnicodeLower(); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", query.SQLiteLowerFunc, err)
	}

	// _time_format=sqlite writes times in a layout julianday() can parse.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_time_format=sqlite", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := execSchema(context.Background(), db, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	repo := newSQLOutfitRepository(db, query.SQLite{}, isSQLiteDuplicate, logger)
	repo.logger.Info("initialized", zap.String("path", dbPath))
	return repo, nil
}

// isSQLiteDuplicate matches UNIQUE constraint violations, with or without
// extended result codes.
func isSQLiteDuplicate(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}
