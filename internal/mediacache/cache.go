package mediacache

import (
	"sort"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/namecoder1/famflix/internal/database"
	"github.com/namecoder1/famflix/internal/watchstate"
)

// Lister is the read side of the watch-state store needed to populate the
// cache.
type Lister interface {
	BulkGetWatchRecords(profileID string) ([]database.WatchRecord, error)
}

// Update is a partial record merged into the cache ahead of the store write.
// Nil fields leave the cached value untouched, so concurrent optimistic
// updates from different surfaces (a card's favorite toggle, the player's
// progress tick) both remain visible. Last write wins per field.
type Update struct {
	TmdbID int64

	MediaType       watchstate.MediaType
	Status          *watchstate.Status
	IsFavorite      *bool
	ProgressSeconds *int64
	DurationSeconds *int64
	LastSeason      *int
	LastEpisode     *int

	Title          string
	PosterPath     string
	ReleaseDate    string
	Genres         string
	RatingSnapshot float64
}

// Cache is the profile-scoped in-memory map of watch records backing every
// list and card. It is created when a profile is selected and discarded on
// switch; it is never shared across profiles. Reads never touch the network.
type Cache struct {
	mu        sync.RWMutex
	profileID string
	records   map[int64]database.WatchRecord
	loadErr   error
}

// New creates an empty cache bound to a profile.
func New(profileID string) *Cache {
	return &Cache{
		profileID: profileID,
		records:   make(map[int64]database.WatchRecord),
	}
}

// ProfileID returns the profile this cache belongs to.
func (c *Cache) ProfileID() string {
	return c.profileID
}

// Load populates the cache with a bulk read from the store, replacing any
// previous contents. On failure the cache degrades to empty with the error
// retained; consumers fall back to no personalization instead of crashing.
func (c *Cache) Load(store Lister) error {
	records, err := store.BulkGetWatchRecords(c.profileID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = make(map[int64]database.WatchRecord, len(records))
	c.loadErr = err
	if err != nil {
		return err
	}

	for _, record := range records {
		c.records[record.TmdbID] = record
	}
	return nil
}

// LoadFailed reports whether the last Load ended in an error.
func (c *Cache) LoadFailed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadErr != nil
}

// Get returns the cached record for a title. It never blocks on I/O.
func (c *Cache) Get(tmdbID int64) (database.WatchRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.records[tmdbID]
	return record, ok
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// ApplyOptimistic merges a partial update into the cache entry synchronously
// so every surface reflects the user's intent before the store write
// resolves. Applying the same update twice leaves the cache unchanged.
func (c *Cache) ApplyOptimistic(update Update) database.WatchRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.records[update.TmdbID]
	if !ok {
		record = database.WatchRecord{
			ProfileID: c.profileID,
			TmdbID:    update.TmdbID,
		}
	}

	if update.MediaType != "" {
		record.MediaType = update.MediaType.String()
	}
	if update.Status != nil {
		record.Status = update.Status.String()
	}
	if update.IsFavorite != nil {
		record.IsFavorite = *update.IsFavorite
	}
	if update.ProgressSeconds != nil {
		record.ProgressSeconds = *update.ProgressSeconds
	}
	if update.DurationSeconds != nil {
		record.DurationSeconds = *update.DurationSeconds
	}
	if update.LastSeason != nil {
		record.LastSeason = update.LastSeason
	}
	if update.LastEpisode != nil {
		record.LastEpisode = update.LastEpisode
	}
	if update.Title != "" {
		record.Title = update.Title
	}
	if update.PosterPath != "" {
		record.PosterPath = update.PosterPath
	}
	if update.ReleaseDate != "" {
		record.ReleaseDate = update.ReleaseDate
	}
	if update.Genres != "" {
		record.Genres = update.Genres
	}
	if update.RatingSnapshot != 0 {
		record.RatingSnapshot = update.RatingSnapshot
	}

	c.records[update.TmdbID] = record
	return record
}

// All returns every cached record, most recently updated first.
func (c *Cache) All() []database.WatchRecord {
	return c.filter(func(database.WatchRecord) bool { return true })
}

// ContinueWatching returns titles with active progress: explicitly watching,
// or started but neither completed nor dropped.
func (c *Cache) ContinueWatching() []database.WatchRecord {
	return c.filter(func(r database.WatchRecord) bool {
		if r.Status == watchstate.StatusWatching.String() {
			return true
		}
		if r.Status == watchstate.StatusCompleted.String() || r.Status == watchstate.StatusDropped.String() {
			return false
		}
		return r.ProgressSeconds > 0
	})
}

// Favorites returns titles the profile marked as favorite.
func (c *Cache) Favorites() []database.WatchRecord {
	return c.filter(func(r database.WatchRecord) bool {
		return r.IsFavorite
	})
}

// PlanToWatch returns titles saved for later.
func (c *Cache) PlanToWatch() []database.WatchRecord {
	return c.filter(func(r database.WatchRecord) bool {
		return r.Status == watchstate.StatusPlanToWatch.String()
	})
}

// WithStatus returns titles having the given list status.
func (c *Cache) WithStatus(status watchstate.Status) []database.WatchRecord {
	return c.filter(func(r database.WatchRecord) bool {
		return r.Status == status.String()
	})
}

// Search fuzzy-matches records by title, best match first.
func (c *Cache) Search(query string) []database.WatchRecord {
	candidates := c.All()
	if query == "" {
		return candidates
	}

	titles := make([]string, len(candidates))
	for i, record := range candidates {
		titles[i] = record.Title
	}

	matches := fuzzy.Find(query, titles)
	results := make([]database.WatchRecord, 0, len(matches))
	for _, match := range matches {
		results = append(results, candidates[match.Index])
	}
	return results
}

// filter returns matching records sorted by update time, newest first.
// Derived views are always computed from the map, never stored redundantly.
func (c *Cache) filter(keep func(database.WatchRecord) bool) []database.WatchRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make([]database.WatchRecord, 0, len(c.records))
	for _, record := range c.records {
		if keep(record) {
			results = append(results, record)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].UpdatedAt.Equal(results[j].UpdatedAt) {
			return results[i].TmdbID < results[j].TmdbID
		}
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})

	return results
}
