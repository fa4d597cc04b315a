package repository

import (
	"context"
	"errors"

	"outfit-db-api/internal/model"
)

// ErrDuplicateUniqueID is returned by Insert when the unique_id is already taken.
var ErrDuplicateUniqueID = errors.New("duplicate outfit unique id")

// OutfitRepository defines outfit data access methods.
type OutfitRepository interface {
	// GetByUniqueIDs fetches every outfit whose unique_id is in ids.
	// Missing IDs are simply absent from the result.
	GetByUniqueIDs(ctx context.Context, ids []int64) ([]model.Outfit, error)

	// Search returns a filtered, sorted, limited listing.
	Search(ctx context.Context, params model.SearchParams) ([]model.Outfit, error)

	// ExistsByUniqueID reports whether an outfit already uses id.
	ExistsByUniqueID(ctx context.Context, id int64) (bool, error)

	// Insert stores a new outfit. Returns ErrDuplicateUniqueID on a unique key conflict.
	Insert(ctx context.Context, outfit *model.Outfit) error

	// IncrementCounter adds one to counter for every outfit in ids and
	// returns the number of rows updated.
	IncrementCounter(ctx context.Context, counter model.Counter, ids []int64) (int64, error)

	// GetStats returns statistics about the outfit database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close closes the repository connection pool.
	Close() error
}
