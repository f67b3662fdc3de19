package profiles

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/namecoder1/famflix/internal/database"
	"github.com/namecoder1/famflix/internal/watchstate"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	return db
}

func TestProfileCRUD(t *testing.T) {
	svc := NewService(newTestDB(t))

	t.Run("name is required", func(t *testing.T) {
		_, err := svc.Create("   ", "")
		assert.ErrorIs(t, err, ErrNameRequired)
	})

	t.Run("create and get", func(t *testing.T) {
		created, err := svc.Create("Kids", "/avatars/kids.png")
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		loaded, err := svc.Get(created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Kids", loaded.Name)
		assert.Equal(t, "/avatars/kids.png", loaded.AvatarURL)
	})

	t.Run("missing profile", func(t *testing.T) {
		_, err := svc.Get("nope")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})

	t.Run("list", func(t *testing.T) {
		_, err := svc.Create("Parents", "")
		require.NoError(t, err)

		all, err := svc.List()
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	store := watchstate.NewService(db)

	profile, err := svc.Create("Kids", "")
	require.NoError(t, err)

	_, err = store.ApplyAction(profile.ID, 550, watchstate.ActionAddToList, watchstate.Metadata{
		MediaType: watchstate.MediaTypeMovie,
	})
	require.NoError(t, err)

	season, episode := 1, 1
	_, err = store.SaveProgress(profile.ID, 1399, &season, &episode, 60, 3300, watchstate.Metadata{
		MediaType: watchstate.MediaTypeTV,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(profile.ID))

	_, err = svc.Get(profile.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	records, err := store.BulkGetWatchRecords(profile.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	rows, err := store.BulkGetEpisodeProgress(profile.ID, 1399)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSelect(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	store := watchstate.NewService(db)

	profile, err := svc.Create("Kids", "")
	require.NoError(t, err)

	_, err = store.ApplyAction(profile.ID, 550, watchstate.ActionAddToList, watchstate.Metadata{
		MediaType: watchstate.MediaTypeMovie,
		Title:     "Fight Club",
	})
	require.NoError(t, err)

	t.Run("populates a fresh cache", func(t *testing.T) {
		selection, err := svc.Select(profile.ID, store)
		require.NoError(t, err)

		assert.Equal(t, profile.ID, selection.Cache.ProfileID())
		assert.False(t, selection.Cache.LoadFailed())
		assert.Equal(t, 1, selection.Cache.Len())
	})

	t.Run("each selection is scoped to its profile", func(t *testing.T) {
		other, err := svc.Create("Parents", "")
		require.NoError(t, err)

		selection, err := svc.Select(other.ID, store)
		require.NoError(t, err)
		assert.Zero(t, selection.Cache.Len())
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := svc.Select("nope", store)
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})
}
