package repository

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"outfit-db-api/internal/config"
)

// Open initializes the outfit repository selected by cfg.Type.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*SQLOutfitRepository, error) {
	pool := PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "postgres", "postgresql":
		return NewPostgresOutfitRepository(cfg.PostgresDSN(), pool, logger)
	case "mysql":
		dsn := MySQLDSN(cfg.User, cfg.Password, cfg.Host, cfg.PortOrDefault(), cfg.Name)
		return NewMySQLOutfitRepository(dsn, pool, logger)
	case "sqlite", "sqlite3", "":
		return NewSQLiteOutfitRepository(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}
