package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outfit-db-api/internal/config"
	"outfit-db-api/internal/model"
)

func createTestRepository(t *testing.T) *SQLOutfitRepository {
	t.Helper()
	repo, err := NewSQLiteOutfitRepository(filepath.Join(t.TempDir(), "data", "outfits.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func insertOutfit(t *testing.T, repo *SQLOutfitRepository, o model.Outfit) model.Outfit {
	t.Helper()
	if o.AccessoryData == nil {
		o.AccessoryData = json.RawMessage(`"acc"`)
	}
	if o.UploadTime.IsZero() {
		o.UploadTime = time.Now().UTC().Truncate(time.Microsecond)
	}
	require.NoError(t, repo.Insert(context.Background(), &o))
	return o
}

func uniqueIDs(outfits []model.Outfit) []int64 {
	ids := make([]int64, len(outfits))
	for i, o := range outfits {
		ids[i] = o.UniqueID
	}
	return ids
}

func TestInsertAndGetByUniqueIDs(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()

	uploaded := time.Date(2024, 5, 1, 12, 30, 0, 123456000, time.UTC)
	insertOutfit(t, repo, model.Outfit{
		UniqueID:              1234567890,
		Name:                  "Summer Fit",
		Price:                 25,
		AccessoryData:         json.RawMessage(`"[1,2,3]"`),
		SerializedDescription: json.RawMessage(`{"a":1}`),
		OtherMetadata:         json.RawMessage(`{"tag":"beach"}`),
		UploadTime:            uploaded,
	})

	got, err := repo.GetByUniqueIDs(ctx, []int64{1234567890, 1111111111})
	require.NoError(t, err)
	require.Len(t, got, 1)

	o := got[0]
	assert.Equal(t, int64(1234567890), o.UniqueID)
	assert.Equal(t, "Summer Fit", o.Name)
	assert.Equal(t, int64(25), o.Price)
	assert.JSONEq(t, `"[1,2,3]"`, string(o.AccessoryData))
	assert.JSONEq(t, `{"a":1}`, string(o.SerializedDescription))
	assert.JSONEq(t, `{"tag":"beach"}`, string(o.OtherMetadata))
	assert.Zero(t, o.Views)
	assert.Zero(t, o.Favourites)
	assert.True(t, uploaded.Equal(o.UploadTime), "upload time %s != %s", o.UploadTime, uploaded)
	assert.Equal(t, time.UTC, o.UploadTime.Location())
}

func TestGetByUniqueIDs_Empty(t *testing.T) {
	repo := createTestRepository(t)

	got, err := repo.GetByUniqueIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsert_DefaultsOptionalDocuments(t *testing.T) {
	repo := createTestRepository(t)

	insertOutfit(t, repo, model.Outfit{UniqueID: 2000000000, Name: "Plain"})

	got, err := repo.GetByUniqueIDs(context.Background(), []int64{2000000000})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{}`, string(got[0].SerializedDescription))
	assert.JSONEq(t, `{}`, string(got[0].OtherMetadata))
}

func TestInsert_DuplicateUniqueID(t *testing.T) {
	repo := createTestRepository(t)

	insertOutfit(t, repo, model.Outfit{UniqueID: 3000000000, Name: "First"})

	dup := model.Outfit{
		UniqueID:      3000000000,
		Name:          "Second",
		AccessoryData: json.RawMessage(`"x"`),
		UploadTime:    time.Now().UTC(),
	}
	err := repo.Insert(context.Background(), &dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateUniqueID)
}

func TestExistsByUniqueID(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()

	insertOutfit(t, repo, model.Outfit{UniqueID: 4000000000, Name: "Exists"})

	ok, err := repo.ExistsByUniqueID(ctx, 4000000000)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByUniqueID(ctx, 4000000001)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrementCounter(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()

	insertOutfit(t, repo, model.Outfit{UniqueID: 5000000001, Name: "A"})
	insertOutfit(t, repo, model.Outfit{UniqueID: 5000000002, Name: "B"})

	updated, err := repo.IncrementCounter(ctx, model.CounterViews, []int64{5000000001, 5000000002, 5999999999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	updated, err = repo.IncrementCounter(ctx, model.CounterFavourites, []int64{5000000002})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	got, err := repo.GetByUniqueIDs(ctx, []int64{5000000001, 5000000002})
	require.NoError(t, err)
	byID := map[int64]model.Outfit{}
	for _, o := range got {
		byID[o.UniqueID] = o
	}
	assert.Equal(t, int64(1), byID[5000000001].Views)
	assert.Equal(t, int64(0), byID[5000000001].Favourites)
	assert.Equal(t, int64(1), byID[5000000002].Views)
	assert.Equal(t, int64(1), byID[5000000002].Favourites)
}

func TestIncrementCounter_EmptyIDs(t *testing.T) {
	repo := createTestRepository(t)

	updated, err := repo.IncrementCounter(context.Background(), model.CounterViews, []int64{})
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestIncrementCounter_UnknownCounter(t *testing.T) {
	repo := createTestRepository(t)

	_, err := repo.IncrementCounter(context.Background(), model.Counter("price"), []int64{1})
	require.Error(t, err)
}

func oversizedIDList(existing int64) []int64 {
	ids := make([]int64, 0, 40000)
	for i := int64(0); i < 35000; i++ {
		ids = append(ids, 9000000000+i)
	}
	// Duplicates straddle chunk boundaries.
	for i := 0; i < 5000; i++ {
		ids = append(ids, existing)
	}
	return ids
}

func TestIncrementCounter_LargeIDList(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()

	insertOutfit(t, repo, model.Outfit{UniqueID: 5100000001, Name: "A"})

	updated, err := repo.IncrementCounter(ctx, model.CounterViews, oversizedIDList(5100000001))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	got, err := repo.GetByUniqueIDs(ctx, []int64{5100000001})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Views)
}

func TestGetByUniqueIDs_LargeIDList(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()

	insertOutfit(t, repo, model.Outfit{UniqueID: 5100000002, Name: "B"})
	insertOutfit(t, repo, model.Outfit{UniqueID: 9000034999, Name: "C"})

	got, err := repo.GetByUniqueIDs(ctx, oversizedIDList(5100000002))
	require.NoError(t, err)
	require.Len(t, got, 2)

	names := []string{got[0].Name, got[1].Name}
	assert.ElementsMatch(t, []string{"B", "C"}, names)
}

func TestIDChunks(t *testing.T) {
	assert.Empty(t, idChunks(nil))

	chunks := idChunks([]int64{3, 1, 3, 2, 1})
	require.Len(t, chunks, 1)
	assert.Equal(t, []int64{3, 1, 2}, chunks[0])

	ids := make([]int64, 2*maxIDsPerStatement+1)
	for i := range ids {
		ids[i] = int64(i)
	}
	chunks = idChunks(ids)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], maxIDsPerStatement)
	assert.Len(t, chunks[1], maxIDsPerStatement)
	assert.Equal(t, []int64{int64(2 * maxIDsPerStatement)}, chunks[2])
}

func TestSearch_Newest(t *testing.T) {
	repo := createTestRepository(t)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	insertOutfit(t, repo, model.Outfit{UniqueID: 6000000001, Name: "Old", UploadTime: base})
	insertOutfit(t, repo, model.Outfit{UniqueID: 6000000002, Name: "Mid", UploadTime: base.Add(time.Minute)})
	insertOutfit(t, repo, model.Outfit{UniqueID: 6000000003, Name: "New", UploadTime: base.Add(2 * time.Minute)})

	got, err := repo.Search(context.Background(), model.SearchParams{Sort: model.SortNewest, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{6000000003, 6000000002}, uniqueIDs(got))
}

func TestSearch_Popular(t *testing.T) {
	repo := createTestRepository(t)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	insertOutfit(t, repo, model.Outfit{UniqueID: 6100000001, Name: "Quiet", Views: 1, UploadTime: base.Add(2 * time.Minute)})
	insertOutfit(t, repo, model.Outfit{UniqueID: 6100000002, Name: "Loved", Views: 3, Favourites: 7, UploadTime: base.Add(30 * time.Second)})
	insertOutfit(t, repo, model.Outfit{UniqueID: 6100000003, Name: "Viewed", Views: 10, UploadTime: base})
	insertOutfit(t, repo, model.Outfit{UniqueID: 6100000004, Name: "Viewed Later", Views: 10, UploadTime: base.Add(time.Minute)})

	got, err := repo.Search(context.Background(), model.SearchParams{Sort: model.SortPopular, Limit: 10})
	require.NoError(t, err)
	// Equal engagement ties break on upload time, newest first.
	assert.Equal(t, []int64{6100000004, 6100000002, 6100000003, 6100000001}, uniqueIDs(got))
}

func TestSearch_Trending(t *testing.T) {
	repo := createTestRepository(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	// ratio 0.5 over 10 days = 5
	insertOutfit(t, repo, model.Outfit{UniqueID: 6200000001, Name: "Steady", Views: 10, Favourites: 5, UploadTime: now.Add(-10 * 24 * time.Hour)})
	// ratio 1.0 over 1 day = 1
	insertOutfit(t, repo, model.Outfit{UniqueID: 6200000002, Name: "Fresh", Views: 4, Favourites: 4, UploadTime: now.Add(-24 * time.Hour)})
	// no views scores 0
	insertOutfit(t, repo, model.Outfit{UniqueID: 6200000003, Name: "Unseen", Favourites: 9, UploadTime: now.Add(-30 * 24 * time.Hour)})

	got, err := repo.Search(context.Background(), model.SearchParams{Sort: model.SortTrending, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{6200000001, 6200000002, 6200000003}, uniqueIDs(got))
}

func TestSearch_KeywordMatchesNameAndMetadata(t *testing.T) {
	repo := createTestRepository(t)

	insertOutfit(t, repo, model.Outfit{UniqueID: 6300000001, Name: "SUMMER Breeze"})
	insertOutfit(t, repo, model.Outfit{UniqueID: 6300000002, Name: "Winter", OtherMetadata: json.RawMessage(`{"season":"summer"}`)})
	insertOutfit(t, repo, model.Outfit{UniqueID: 6300000003, Name: "Autumn"})
	// accessory_data is not part of the keyword search.
	insertOutfit(t, repo, model.Outfit{UniqueID: 6300000004, Name: "Spring", AccessoryData: json.RawMessage(`{"hat":"summer"}`)})

	got, err := repo.Search(context.Background(), model.SearchParams{Keyword: "summer", Sort: model.SortNewest, Limit: 10})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{6300000001, 6300000002}, uniqueIDs(got))
}

func TestSearch_KeywordFoldsNonASCII(t *testing.T) {
	repo := createTestRepository(t)

	insertOutfit(t, repo, model.Outfit{UniqueID: 6350000001, Name: "ÉTÉ Jacket"})
	insertOutfit(t, repo, model.Outfit{UniqueID: 6350000002, Name: "Plain Jacket"})
	insertOutfit(t, repo, model.Outfit{UniqueID: 6350000003, Name: "Winter", OtherMetadata: json.RawMessage(`{"style":"ÜBER"}`)})

	for _, keyword := range []string{"été", "ÉTÉ", "Été jacket"} {
		got, err := repo.Search(context.Background(), model.SearchParams{Keyword: keyword, Sort: model.SortNewest, Limit: 10})
		require.NoError(t, err, keyword)
		assert.Equal(t, []int64{6350000001}, uniqueIDs(got), keyword)
	}

	got, err := repo.Search(context.Background(), model.SearchParams{Keyword: "über", Sort: model.SortNewest, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{6350000003}, uniqueIDs(got))
}

func TestUnicodeLower(t *testing.T) {
	v, err := unicodeLower(nil, []driver.Value{"ÉTÉ Jacket"})
	require.NoError(t, err)
	assert.Equal(t, "été jacket", v)

	v, err = unicodeLower(nil, []driver.Value{[]byte("ÜBER")})
	require.NoError(t, err)
	assert.Equal(t, "über", v)

	v, err = unicodeLower(nil, []driver.Value{nil})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSearch_KeywordWildcardIsLiteral(t *testing.T) {
	repo := createTestRepository(t)

	insertOutfit(t, repo, model.Outfit{UniqueID: 6400000001, Name: "100% Cotton"})
	insertOutfit(t, repo, model.Outfit{UniqueID: 6400000002, Name: "1000 Cotton"})

	got, err := repo.Search(context.Background(), model.SearchParams{Keyword: "100%", Sort: model.SortNewest, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{6400000001}, uniqueIDs(got))
}

func TestSearch_NoMatches(t *testing.T) {
	repo := createTestRepository(t)

	got, err := repo.Search(context.Background(), model.SearchParams{Keyword: "nothing", Sort: model.SortNewest, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetStats(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", stats["db_type"])
	assert.Equal(t, int64(0), stats["total_outfits"])
	assert.NotContains(t, stats, "last_upload")

	insertOutfit(t, repo, model.Outfit{UniqueID: 7000000001, Name: "A", Views: 3, Favourites: 1})
	insertOutfit(t, repo, model.Outfit{UniqueID: 7000000002, Name: "B", Views: 2})

	stats, err = repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["total_outfits"])
	assert.Equal(t, int64(5), stats["total_views"])
	assert.Equal(t, int64(1), stats["total_favourites"])
	assert.Contains(t, stats, "last_upload")
}

func TestPing(t *testing.T) {
	repo := createTestRepository(t)
	assert.NoError(t, repo.Ping(context.Background()))
}

func configFor(dbType, path string) config.DatabaseConfig {
	return config.DatabaseConfig{Type: dbType, Path: path, MaxOpenConns: 1, MaxIdleConns: 1}
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open(configFor("mongodb", ""), nil)
	require.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	repo, err := Open(configFor("sqlite", filepath.Join(t.TempDir(), "outfits.db")), nil)
	require.NoError(t, err)
	defer repo.Close()
	assert.NoError(t, repo.Ping(context.Background()))
}
