package mediacache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namecoder1/famflix/internal/database"
	"github.com/namecoder1/famflix/internal/watchstate"
)

// fakeLister serves canned records for cache population.
type fakeLister struct {
	records []database.WatchRecord
	err     error
}

func (f *fakeLister) BulkGetWatchRecords(string) ([]database.WatchRecord, error) {
	return f.records, f.err
}

func statusPtr(s watchstate.Status) *watchstate.Status { return &s }
func boolPtr(v bool) *bool                             { return &v }
func int64Ptr(v int64) *int64                          { return &v }

func TestCacheLoad(t *testing.T) {
	t.Run("replaces previous contents", func(t *testing.T) {
		cache := New("p1")
		cache.ApplyOptimistic(Update{TmdbID: 999, Title: "Stale"})

		store := &fakeLister{records: []database.WatchRecord{
			{ProfileID: "p1", TmdbID: 550, Title: "Fight Club"},
			{ProfileID: "p1", TmdbID: 1399, Title: "Game of Thrones"},
		}}
		require.NoError(t, cache.Load(store))

		assert.Equal(t, 2, cache.Len())
		_, ok := cache.Get(999)
		assert.False(t, ok)
		assert.False(t, cache.LoadFailed())
	})

	t.Run("failure degrades to empty", func(t *testing.T) {
		cache := New("p1")
		cache.ApplyOptimistic(Update{TmdbID: 550, Title: "Fight Club"})

		store := &fakeLister{err: errors.New("store unavailable")}
		err := cache.Load(store)
		require.Error(t, err)

		assert.Zero(t, cache.Len())
		assert.True(t, cache.LoadFailed())
		assert.Empty(t, cache.All())
	})
}

func TestApplyOptimistic(t *testing.T) {
	t.Run("creates the entry when absent", func(t *testing.T) {
		cache := New("p1")

		record := cache.ApplyOptimistic(Update{
			TmdbID: 550,
			Status: statusPtr(watchstate.StatusPlanToWatch),
			Title:  "Fight Club",
		})

		assert.Equal(t, "p1", record.ProfileID)
		assert.Equal(t, watchstate.StatusPlanToWatch.String(), record.Status)
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("unset fields survive the merge", func(t *testing.T) {
		cache := New("p1")
		cache.ApplyOptimistic(Update{
			TmdbID:          550,
			Title:           "Fight Club",
			Status:          statusPtr(watchstate.StatusWatching),
			ProgressSeconds: int64Ptr(120),
		})

		record := cache.ApplyOptimistic(Update{
			TmdbID:     550,
			IsFavorite: boolPtr(true),
		})

		assert.True(t, record.IsFavorite)
		assert.Equal(t, "Fight Club", record.Title)
		assert.Equal(t, watchstate.StatusWatching.String(), record.Status)
		assert.Equal(t, int64(120), record.ProgressSeconds)
	})

	t.Run("applying twice changes nothing", func(t *testing.T) {
		cache := New("p1")
		update := Update{
			TmdbID:     550,
			Status:     statusPtr(watchstate.StatusWatching),
			IsFavorite: boolPtr(true),
			Title:      "Fight Club",
		}

		first := cache.ApplyOptimistic(update)
		second := cache.ApplyOptimistic(update)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("surfaces merging different fields both land", func(t *testing.T) {
		cache := New("p1")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.ApplyOptimistic(Update{TmdbID: 550, IsFavorite: boolPtr(true)})
		}()
		go func() {
			defer wg.Done()
			cache.ApplyOptimistic(Update{TmdbID: 550, ProgressSeconds: int64Ptr(300)})
		}()
		wg.Wait()

		record, ok := cache.Get(550)
		require.True(t, ok)
		assert.True(t, record.IsFavorite)
		assert.Equal(t, int64(300), record.ProgressSeconds)
	})
}

func TestDerivedViews(t *testing.T) {
	now := time.Now()
	cache := New("p1")
	store := &fakeLister{records: []database.WatchRecord{
		{TmdbID: 1, Title: "Watching", Status: watchstate.StatusWatching.String(), UpdatedAt: now},
		{TmdbID: 2, Title: "Started", ProgressSeconds: 600, UpdatedAt: now.Add(-time.Minute)},
		{TmdbID: 3, Title: "Planned", Status: watchstate.StatusPlanToWatch.String(), IsFavorite: true, UpdatedAt: now.Add(-2 * time.Minute)},
		{TmdbID: 4, Title: "Done", Status: watchstate.StatusCompleted.String(), ProgressSeconds: 7000, UpdatedAt: now.Add(-3 * time.Minute)},
		{TmdbID: 5, Title: "Gone", Status: watchstate.StatusDropped.String(), ProgressSeconds: 300, UpdatedAt: now.Add(-4 * time.Minute)},
	}}
	require.NoError(t, cache.Load(store))

	t.Run("continue watching", func(t *testing.T) {
		var ids []int64
		for _, r := range cache.ContinueWatching() {
			ids = append(ids, r.TmdbID)
		}
		// Watching first, then started-but-untracked. Completed and dropped
		// never appear however much progress they carry.
		assert.Equal(t, []int64{1, 2}, ids)
	})

	t.Run("favorites", func(t *testing.T) {
		favorites := cache.Favorites()
		require.Len(t, favorites, 1)
		assert.Equal(t, int64(3), favorites[0].TmdbID)
	})

	t.Run("plan to watch", func(t *testing.T) {
		planned := cache.PlanToWatch()
		require.Len(t, planned, 1)
		assert.Equal(t, int64(3), planned[0].TmdbID)
	})

	t.Run("with status", func(t *testing.T) {
		completed := cache.WithStatus(watchstate.StatusCompleted)
		require.Len(t, completed, 1)
		assert.Equal(t, int64(4), completed[0].TmdbID)
	})

	t.Run("views follow optimistic updates", func(t *testing.T) {
		cache.ApplyOptimistic(Update{TmdbID: 5, Status: statusPtr(watchstate.StatusWatching)})

		var ids []int64
		for _, r := range cache.ContinueWatching() {
			ids = append(ids, r.TmdbID)
		}
		assert.Contains(t, ids, int64(5))
	})

	t.Run("all is sorted newest first", func(t *testing.T) {
		all := cache.All()
		require.Len(t, all, 5)
		assert.Equal(t, int64(1), all[0].TmdbID)
	})
}

func TestSearch(t *testing.T) {
	cache := New("p1")
	store := &fakeLister{records: []database.WatchRecord{
		{TmdbID: 550, Title: "Fight Club"},
		{TmdbID: 1399, Title: "Game of Thrones"},
		{TmdbID: 680, Title: "Pulp Fiction"},
	}}
	require.NoError(t, cache.Load(store))

	t.Run("fuzzy match", func(t *testing.T) {
		results := cache.Search("thrones")
		require.NotEmpty(t, results)
		assert.Equal(t, int64(1399), results[0].TmdbID)
	})

	t.Run("empty query returns everything", func(t *testing.T) {
		assert.Len(t, cache.Search(""), 3)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, cache.Search("zzzzzz"))
	})
}
