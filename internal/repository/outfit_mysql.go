package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"outfit-db-api/internal/query"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// mysqlSchema creates the outfits table. MySQL has no CREATE INDEX IF NOT
// EXISTS, so indexes are declared inline.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS outfits (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		unique_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		price BIGINT NOT NULL DEFAULT 0,
		accessory_data JSON NOT NULL,
		serialized_description JSON NULL,
		other_metadata JSON NULL,
		views BIGINT NOT NULL DEFAULT 0,
		favourites BIGINT NOT NULL DEFAULT 0,
		upload_time DATETIME(6) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY idx_outfits_unique_id (unique_id),
		FULLTEXT KEY idx_outfits_name (name),
		KEY idx_outfits_upload_time (upload_time),
		KEY idx_outfits_views (views),
		KEY idx_outfits_favourites (favourites),
		KEY idx_outfits_price (price)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// MySQLDSN builds a go-sql-driver DSN that parses DATETIME into UTC time.Time.
func MySQLDSN(user, password, host string, port int, name string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// NewMySQLOutfitRepository creates a new MySQL outfit repository.
func NewMySQLOutfitRepository(dsn string, pool PoolConfig, logger *zap.Logger) (*SQLOutfitRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}
	pool.apply(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := execSchema(ctx, db, mysqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	repo := newSQLOutfitRepository(db, query.MySQL{}, isMySQLDuplicate, logger)
	repo.logger.Info("initialized",
		zap.Int("max_open", pool.MaxOpenConns),
		zap.Int("max_idle", pool.MaxIdleConns),
	)
	return repo, nil
}

func isMySQLDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
