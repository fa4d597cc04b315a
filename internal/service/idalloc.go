package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"outfit-db-api/internal/model"
	"outfit-db-api/internal/repository"
)

// DefaultMaxIDAttempts bounds how many IDs are drawn for one upload.
const DefaultMaxIDAttempts = 10

// ErrIDAllocationExhausted is returned when every drawn ID was taken.
var ErrIDAllocationExhausted = errors.New("unique id allocation exhausted")

// IDGenerator returns a candidate unique ID.
type IDGenerator func() int64

// RandomUniqueID draws uniformly from [model.MinUniqueID, model.MaxUniqueID].
func RandomUniqueID() int64 {
	return model.MinUniqueID + rand.Int64N(model.MaxUniqueID-model.MinUniqueID+1)
}

// IDAllocator assigns collision-free unique IDs to new outfits. The existence
// check skips IDs already known to be taken; the store's unique constraint
// decides the race between concurrent uploads.
type IDAllocator struct {
	repo        repository.OutfitRepository
	generate    IDGenerator
	maxAttempts int
	logger      *zap.Logger
}

// NewIDAllocator creates an allocator. A nil generator uses RandomUniqueID.
func NewIDAllocator(repo repository.OutfitRepository, generate IDGenerator, logger *zap.Logger) *IDAllocator {
	if generate == nil {
		generate = RandomUniqueID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IDAllocator{
		repo:        repo,
		generate:    generate,
		maxAttempts: DefaultMaxIDAttempts,
		logger:      logger.Named("idalloc"),
	}
}

// InsertWithNewID draws IDs until outfit is stored under one that was free,
// and returns it. A duplicate-key failure on insert spends an attempt like
// a pre-check collision; any other storage error is returned immediately.
func (a *IDAllocator) InsertWithNewID(ctx context.Context, outfit *model.Outfit) (int64, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		id := a.generate()

		taken, err := a.repo.ExistsByUniqueID(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("check unique id: %w", err)
		}
		if taken {
			a.logger.Debug("unique id collision", zap.Int64("id", id), zap.Int("attempt", attempt))
			continue
		}

		outfit.UniqueID = id
		err = a.repo.Insert(ctx, outfit)
		if errors.Is(err, repository.ErrDuplicateUniqueID) {
			a.logger.Warn("unique id taken at insert", zap.Int64("id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return 0, err
		}
		return id, nil
	}

	outfit.UniqueID = 0
	return 0, ErrIDAllocationExhausted
}
