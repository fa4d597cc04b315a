package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"outfit-db-api/internal/model"
	"outfit-db-api/internal/repository"
)

// ErrInvalidAccessoryData is returned when accessory data is not valid JSON.
var ErrInvalidAccessoryData = errors.New("accessory data is not valid JSON")

// OutfitService handles outfit business logic.
type OutfitService struct {
	repo      repository.OutfitRepository
	allocator *IDAllocator
	now       func() time.Time
	logger    *zap.Logger
}

// NewOutfitService creates a new outfit service.
// Returns nil if repo is nil (required dependency).
func NewOutfitService(repo repository.OutfitRepository, allocator *IDAllocator, logger *zap.Logger) *OutfitService {
	if repo == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if allocator == nil {
		allocator = NewIDAllocator(repo, nil, logger)
	}
	return &OutfitService{
		repo:      repo,
		allocator: allocator,
		now:       time.Now,
		logger:    logger.Named("outfits"),
	}
}

// GetOutfitDetails resolves caller keys to outfits in one batched lookup.
// Keys whose ID is unknown map to nil.
func (s *OutfitService) GetOutfitDetails(ctx context.Context, keys map[string]int64) (map[string]*model.Outfit, error) {
	result := make(map[string]*model.Outfit, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	seen := make(map[int64]struct{}, len(keys))
	ids := make([]int64, 0, len(keys))
	for _, id := range keys {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	outfits, err := s.repo.GetByUniqueIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get outfit details: %w", err)
	}

	byID := make(map[int64]*model.Outfit, len(outfits))
	for i := range outfits {
		byID[outfits[i].UniqueID] = &outfits[i]
	}
	for key, id := range keys {
		result[key] = byID[id]
	}
	return result, nil
}

// Search returns outfit summaries for a listing request.
func (s *OutfitService) Search(ctx context.Context, params model.SearchParams) ([]model.OutfitSummary, error) {
	if params.Limit < model.MinSearchAmount || params.Limit > model.MaxSearchAmount {
		return nil, fmt.Errorf("search amount %d out of range", params.Limit)
	}

	outfits, err := s.repo.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search outfits: %w", err)
	}

	summaries := make([]model.OutfitSummary, len(outfits))
	for i := range outfits {
		summaries[i] = outfits[i].Summary()
	}
	return summaries, nil
}

// Upload stores a new outfit and returns its unique ID. in must already be
// validated; accessory data is checked again since storage depends on it.
func (s *OutfitService) Upload(ctx context.Context, in model.UploadInput) (int64, error) {
	if !isJSON(in.AccessoryData) {
		return 0, ErrInvalidAccessoryData
	}

	outfit := &model.Outfit{
		Name:                  in.Name,
		Price:                 in.Price,
		AccessoryData:         in.AccessoryData,
		SerializedDescription: in.SerializedDescription,
		OtherMetadata:         in.OtherMetadata,
		UploadTime:            s.now().UTC().Truncate(time.Microsecond),
	}

	id, err := s.allocator.InsertWithNewID(ctx, outfit)
	if err != nil {
		return 0, fmt.Errorf("upload outfit: %w", err)
	}

	s.logger.Info("outfit uploaded", zap.Int64("unique_id", id), zap.String("name", in.Name))
	return id, nil
}

func isJSON(data json.RawMessage) bool {
	return len(data) > 0 && json.Valid(data)
}

// IncrementViews adds one view to each listed outfit.
func (s *OutfitService) IncrementViews(ctx context.Context, ids []int64) (int64, error) {
	return s.increment(ctx, model.CounterViews, ids)
}

// IncrementFavourites adds one favourite to each listed outfit.
func (s *OutfitService) IncrementFavourites(ctx context.Context, ids []int64) (int64, error) {
	return s.increment(ctx, model.CounterFavourites, ids)
}

func (s *OutfitService) increment(ctx context.Context, counter model.Counter, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	updated, err := s.repo.IncrementCounter(ctx, counter, ids)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", counter, err)
	}
	return updated, nil
}

// Stats returns store statistics for the admin endpoint.
func (s *OutfitService) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.repo.GetStats(ctx)
}

// Ping reports whether the store is reachable.
func (s *OutfitService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
