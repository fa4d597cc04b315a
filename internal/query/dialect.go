package query

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect captures the SQL differences between the supported backends.
type Dialect interface {
	// Name returns the backend name (postgres, mysql, sqlite).
	Name() string

	// Placeholder returns the bind marker for the n-th parameter (1-based).
	Placeholder(n int) string

	// MatchIDs returns a predicate matching column against every id, binding
	// the values through b.
	MatchIDs(b *Builder, column string, ids []int64) string

	// ContainsFold returns a case-insensitive LIKE predicate for expr. The
	// pattern is already lower-cased and escaped with backslashes.
	ContainsFold(b *Builder, expr, pattern string) string

	// JSONText returns an expression yielding the textual form of a JSON column.
	JSONText(column string) string

	// TrendingScore returns the favourites-per-view ratio multiplied by the
	// record age in days. Zero views scores zero.
	TrendingScore() string
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	case "sqlite", "sqlite3", "":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", name)
	}
}

// Postgres targets PostgreSQL through lib/pq.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// MatchIDs binds the whole set as one array parameter.
func (Postgres) MatchIDs(b *Builder, column string, ids []int64) string {
	return column + " = ANY(" + b.Bind(pq.Array(ids)) + ")"
}

func (Postgres) ContainsFold(b *Builder, expr, pattern string) string {
	return expr + " ILIKE " + b.Bind(pattern)
}

func (Postgres) JSONText(column string) string { return column + "::text" }

func (Postgres) TrendingScore() string {
	return "(CASE WHEN views > 0 THEN favourites::float / views ELSE 0 END) * EXTRACT(EPOCH FROM (CURRENT_TIMESTAMP - upload_time)) / 86400"
}

// MySQL targets MySQL/MariaDB through go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) MatchIDs(b *Builder, column string, ids []int64) string {
	return column + " IN (" + b.BindList(ids) + ")"
}

func (MySQL) ContainsFold(b *Builder, expr, pattern string) string {
	return "LOWER(" + expr + ") LIKE " + b.Bind(pattern)
}

func (MySQL) JSONText(column string) string { return "CAST(" + column + " AS CHAR)" }

// TrendingScore assumes upload_time is stored in UTC.
func (MySQL) TrendingScore() string {
	return "(CASE WHEN views > 0 THEN favourites / views ELSE 0 END) * TIMESTAMPDIFF(SECOND, upload_time, UTC_TIMESTAMP()) / 86400"
}

// SQLite targets modernc.org/sqlite.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) MatchIDs(b *Builder, column string, ids []int64) string {
	return column + " IN (" + b.BindList(ids) + ")"
}

// SQLiteLowerFunc names the Unicode-aware lower() the SQLite repository
// registers with the driver. The built-in LOWER folds ASCII only.
const SQLiteLowerFunc = "unicode_lower"

// ContainsFold declares the escape character; SQLite LIKE has none by default.
func (SQLite) ContainsFold(b *Builder, expr, pattern string) string {
	return SQLiteLowerFunc + "(" + expr + ") LIKE " + b.Bind(pattern) + ` ESCAPE '\'`
}

func (SQLite) JSONText(column string) string { return column }

// TrendingScore uses julianday, whose difference is already in days.
func (SQLite) TrendingScore() string {
	return "(CASE WHEN views > 0 THEN CAST(favourites AS REAL) / views ELSE 0 END) * (julianday('now') - julianday(upload_time))"
}
