package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"outfit-db-api/internal/model"
	"outfit-db-api/internal/query"
)

// emptyObject is stored when an optional JSON document is absent.
var emptyObject = json.RawMessage(`{}`)

// SQLOutfitRepository implements OutfitRepository on database/sql.
// The backend-specific constructors supply the dialect and duplicate-key check.
type SQLOutfitRepository struct {
	db          *sql.DB
	dialect     query.Dialect
	isDuplicate func(error) bool
	logger      *zap.Logger
}

func newSQLOutfitRepository(db *sql.DB, dialect query.Dialect, isDuplicate func(error) bool, logger *zap.Logger) *SQLOutfitRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLOutfitRepository{
		db:          db,
		dialect:     dialect,
		isDuplicate: isDuplicate,
		logger:      logger.Named("repository").With(zap.String("db_type", dialect.Name())),
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutfit(row rowScanner) (model.Outfit, error) {
	var (
		o           model.Outfit
		accessory   []byte
		description sql.NullString
		metadata    sql.NullString
	)

	err := row.Scan(
		&o.UniqueID,
		&o.Name,
		&o.Price,
		&accessory,
		&description,
		&metadata,
		&o.Views,
		&o.Favourites,
		&o.UploadTime,
	)
	if err != nil {
		return model.Outfit{}, err
	}

	o.AccessoryData = json.RawMessage(accessory)
	o.SerializedDescription = jsonOrEmpty(description)
	o.OtherMetadata = jsonOrEmpty(metadata)
	o.UploadTime = o.UploadTime.UTC()
	return o, nil
}

func jsonOrEmpty(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return emptyObject
	}
	return json.RawMessage(s.String)
}

// maxIDsPerStatement caps the bind parameters in one ID-set statement,
// well under SQLite's 32766 and MySQL's 65535 placeholder limits.
const maxIDsPerStatement = 1000

// idChunks deduplicates ids and splits them into statement-sized batches.
func idChunks(ids []int64) [][]int64 {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	chunks := make([][]int64, 0, (len(unique)+maxIDsPerStatement-1)/maxIDsPerStatement)
	for len(unique) > maxIDsPerStatement {
		chunks = append(chunks, unique[:maxIDsPerStatement])
		unique = unique[maxIDsPerStatement:]
	}
	if len(unique) > 0 {
		chunks = append(chunks, unique)
	}
	return chunks
}

// GetByUniqueIDs fetches all matching outfits, one batched query per chunk
// of IDs.
func (r *SQLOutfitRepository) GetByUniqueIDs(ctx context.Context, ids []int64) ([]model.Outfit, error) {
	outfits := []model.Outfit{}
	for _, chunk := range idChunks(ids) {
		stmt, args := query.SelectByUniqueIDs(r.dialect, chunk)
		found, err := r.queryOutfits(ctx, stmt, args)
		if err != nil {
			return nil, err
		}
		outfits = append(outfits, found...)
	}
	return outfits, nil
}

// Search returns a filtered, sorted listing.
func (r *SQLOutfitRepository) Search(ctx context.Context, params model.SearchParams) ([]model.Outfit, error) {
	stmt, args := query.Search(r.dialect, params)
	return r.queryOutfits(ctx, stmt, args)
}

func (r *SQLOutfitRepository) queryOutfits(ctx context.Context, stmt string, args []any) ([]model.Outfit, error) {
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outfits: %w", err)
	}
	defer rows.Close()

	outfits := []model.Outfit{}
	for rows.Next() {
		o, err := scanOutfit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outfit: %w", err)
		}
		outfits = append(outfits, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outfits: %w", err)
	}

	return outfits, nil
}

// ExistsByUniqueID reports whether id is already assigned.
func (r *SQLOutfitRepository) ExistsByUniqueID(ctx context.Context, id int64) (bool, error) {
	stmt, args := query.ExistsByUniqueID(r.dialect, id)

	var one int
	err := r.db.QueryRowContext(ctx, stmt, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check outfit id: %w", err)
	}
	return true, nil
}

// Insert stores a new outfit.
func (r *SQLOutfitRepository) Insert(ctx context.Context, outfit *model.Outfit) error {
	if len(outfit.SerializedDescription) == 0 {
		outfit.SerializedDescription = emptyObject
	}
	if len(outfit.OtherMetadata) == 0 {
		outfit.OtherMetadata = emptyObject
	}

	stmt, args := query.InsertOutfit(r.dialect, outfit)
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		if r.isDuplicate != nil && r.isDuplicate(err) {
			return fmt.Errorf("%w: %d", ErrDuplicateUniqueID, outfit.UniqueID)
		}
		return fmt.Errorf("failed to insert outfit: %w", err)
	}
	return nil
}

// IncrementCounter adds one to counter for every listed outfit. Large lists
// are split into chunks that commit together.
func (r *SQLOutfitRepository) IncrementCounter(ctx context.Context, counter model.Counter, ids []int64) (int64, error) {
	chunks := idChunks(ids)
	if len(chunks) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin increment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var updated int64
	for _, chunk := range chunks {
		stmt, args, err := query.IncrementCounter(r.dialect, counter, chunk)
		if err != nil {
			return 0, err
		}

		result, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to increment %s: %w", counter, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read updated rows: %w", err)
		}
		updated += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit increment: %w", err)
	}
	return updated, nil
}

// GetStats returns statistics about the outfit database and its pool.
func (r *SQLOutfitRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["db_type"] = r.dialect.Name()

	var count, views, favourites int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(views), 0), COALESCE(SUM(favourites), 0) FROM "+query.Table,
	).Scan(&count, &views, &favourites)
	if err != nil {
		return nil, fmt.Errorf("failed to count outfits: %w", err)
	}
	stats["total_outfits"] = count
	stats["total_views"] = views
	stats["total_favourites"] = favourites

	var lastUpload time.Time
	err = r.db.QueryRowContext(ctx,
		"SELECT upload_time FROM "+query.Table+" ORDER BY upload_time DESC LIMIT 1",
	).Scan(&lastUpload)
	switch {
	case err == nil:
		stats["last_upload"] = lastUpload.UTC()
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to read last upload: %w", err)
	}

	pool := r.db.Stats()
	stats["pool"] = map[string]interface{}{
		"open":   pool.OpenConnections,
		"in_use": pool.InUse,
		"idle":   pool.Idle,
	}

	return stats, nil
}

// Ping verifies the database is reachable.
func (r *SQLOutfitRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection pool.
func (r *SQLOutfitRepository) Close() error {
	r.logger.Info("closing connection pool")
	return r.db.Close()
}

// execSchema runs schema statements in order. Each one must be idempotent.
func execSchema(ctx context.Context, db *sql.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ensure SQLOutfitRepository implements OutfitRepository
var _ OutfitRepository = (*SQLOutfitRepository)(nil)
