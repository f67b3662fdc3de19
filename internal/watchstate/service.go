package watchstate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/namecoder1/famflix/internal/database"
)

var (
	ErrProfileRequired = errors.New("profile id is required")
	ErrTitleRequired   = errors.New("tmdb id is required")
	ErrEpisodeRequired = errors.New("season and episode are required")
)

// Service is the persistence boundary for watch state. All operations are
// idempotent upserts keyed by (profile, title) or (profile, title, season,
// episode).
type Service struct {
	db *gorm.DB
}

// NewService creates a new watch-state service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RecordFields is a partial update for a watch record. Nil fields are left
// untouched; empty metadata strings are skipped so they never clobber known
// values.
type RecordFields struct {
	MediaType       MediaType
	Status          *Status
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

// UpsertWatchRecord inserts or updates the record for (profile, title),
// merging the supplied fields into the existing row.
func (s *Service) UpsertWatchRecord(profileID string, tmdbID int64, fields RecordFields) (database.WatchRecord, error) {
	if strings.TrimSpace(profileID) == "" {
		return database.WatchRecord{}, ErrProfileRequired
	}
	if tmdbID <= 0 {
		return database.WatchRecord{}, ErrTitleRequired
	}

	var record database.WatchRecord
	err := s.db.Where("profile_id = ? AND tmdb_id = ?", profileID, tmdbID).First(&record).Error
	created := false
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = database.WatchRecord{
			ProfileID: profileID,
			TmdbID:    tmdbID,
			CreatedAt: time.Now(),
		}
		created = true
	} else if err != nil {
		return database.WatchRecord{}, fmt.Errorf("failed to load watch record: %w", err)
	}

	mergeFields(&record, fields)
	record.UpdatedAt = time.Now()

	if created {
		err = s.db.Create(&record).Error
	} else {
		err = s.db.Save(&record).Error
	}
	if err != nil {
		return database.WatchRecord{}, fmt.Errorf("failed to upsert watch record: %w", err)
	}

	return record, nil
}

// GetWatchRecord loads the record for (profile, title). Returns nil without
// error when no record exists.
func (s *Service) GetWatchRecord(profileID string, tmdbID int64) (*database.WatchRecord, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, ErrProfileRequired
	}
	if tmdbID <= 0 {
		return nil, ErrTitleRequired
	}

	var record database.WatchRecord
	err := s.db.Where("profile_id = ? AND tmdb_id = ?", profileID, tmdbID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load watch record: %w", err)
	}

	return &record, nil
}

// BulkGetWatchRecords returns every record for a profile, most recently
// updated first. This is the cache population read.
func (s *Service) BulkGetWatchRecords(profileID string) ([]database.WatchRecord, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, ErrProfileRequired
	}

	var records []database.WatchRecord
	err := s.db.Where("profile_id = ?", profileID).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watch records: %w", err)
	}

	return records, nil
}

// ApplyAction loads the current record, runs the pure derivation rules and
// persists the result. Validation failures are rejected before any write.
func (s *Service) ApplyAction(profileID string, tmdbID int64, action Action, meta Metadata) (database.WatchRecord, error) {
	if strings.TrimSpace(profileID) == "" {
		return database.WatchRecord{}, ErrProfileRequired
	}
	if tmdbID <= 0 {
		return database.WatchRecord{}, ErrTitleRequired
	}

	current, err := s.GetWatchRecord(profileID, tmdbID)
	if err != nil {
		return database.WatchRecord{}, err
	}

	next := Derive(current, action, meta)
	next.ProfileID = profileID
	next.TmdbID = tmdbID

	if current == nil {
		err = s.db.Create(&next).Error
	} else {
		err = s.db.Save(&next).Error
	}
	if err != nil {
		return database.WatchRecord{}, fmt.Errorf("failed to persist %s: %w", action, err)
	}

	return next, nil
}

// SaveProgress persists a playback sample for a title. It mutates only the
// progress attributes (position, duration, last active episode) and the
// denormalized metadata; list status belongs to the derivation rules.
func (s *Service) SaveProgress(profileID string, tmdbID int64, season, episode *int, progressSeconds, durationSeconds int64, meta Metadata) (database.WatchRecord, error) {
	if strings.TrimSpace(profileID) == "" {
		return database.WatchRecord{}, ErrProfileRequired
	}
	if tmdbID <= 0 {
		return database.WatchRecord{}, ErrTitleRequired
	}
	if progressSeconds < 0 {
		progressSeconds = 0
	}
	if durationSeconds > 0 && progressSeconds > durationSeconds {
		progressSeconds = durationSeconds
	}

	fields := RecordFields{
		MediaType:       meta.MediaType,
		ProgressSeconds: &progressSeconds,
		LastSeason:      season,
		LastEpisode:     episode,
		Title:           meta.Title,
		PosterPath:      meta.PosterPath,
		ReleaseDate:     meta.ReleaseDate,
		Genres:          meta.Genres,
		RatingSnapshot:  meta.Rating,
	}
	if durationSeconds > 0 {
		fields.DurationSeconds = &durationSeconds
	}

	record, err := s.UpsertWatchRecord(profileID, tmdbID, fields)
	if err != nil {
		return database.WatchRecord{}, err
	}

	if season != nil && episode != nil {
		if err := s.UpsertEpisodeProgress(profileID, tmdbID, *season, *episode, progressSeconds, durationSeconds); err != nil {
			return database.WatchRecord{}, err
		}
	}

	return record, nil
}

// UpsertEpisodeProgress inserts or updates the per-episode position for a TV
// title.
func (s *Service) UpsertEpisodeProgress(profileID string, tmdbID int64, season, episode int, progressSeconds, durationSeconds int64) error {
	if strings.TrimSpace(profileID) == "" {
		return ErrProfileRequired
	}
	if tmdbID <= 0 {
		return ErrTitleRequired
	}
	if season < 0 || episode < 1 {
		return ErrEpisodeRequired
	}
	if durationSeconds > 0 && progressSeconds > durationSeconds {
		progressSeconds = durationSeconds
	}

	var row database.EpisodeProgress
	err := s.db.Where("profile_id = ? AND tmdb_id = ? AND season = ? AND episode = ?",
		profileID, tmdbID, season, episode).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = database.EpisodeProgress{
			ProfileID: profileID,
			TmdbID:    tmdbID,
			Season:    season,
			Episode:   episode,
		}
	} else if err != nil {
		return fmt.Errorf("failed to load episode progress: %w", err)
	}

	row.ProgressSeconds = progressSeconds
	if durationSeconds > 0 {
		row.DurationSeconds = durationSeconds
	}
	row.UpdatedAt = time.Now()

	if row.ID == 0 {
		err = s.db.Create(&row).Error
	} else {
		err = s.db.Save(&row).Error
	}
	if err != nil {
		return fmt.Errorf("failed to upsert episode progress: %w", err)
	}

	return nil
}

// BulkGetEpisodeProgress returns every stored episode position for a TV
// title, most recently updated first.
func (s *Service) BulkGetEpisodeProgress(profileID string, tmdbID int64) ([]database.EpisodeProgress, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, ErrProfileRequired
	}
	if tmdbID <= 0 {
		return nil, ErrTitleRequired
	}

	var rows []database.EpisodeProgress
	err := s.db.Where("profile_id = ? AND tmdb_id = ?", profileID, tmdbID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch episode progress: %w", err)
	}

	return rows, nil
}

// mergeFields merges a partial update into a record. Nil pointers and empty
// metadata strings leave the existing value untouched.
func mergeFields(record *database.WatchRecord, fields RecordFields) {
	if fields.MediaType != "" {
		record.MediaType = fields.MediaType.String()
	}
	if fields.Status != nil {
		record.Status = fields.Status.String()
	}
	if fields.IsFavorite != nil {
		record.IsFavorite = *fields.IsFavorite
	}
	if fields.ProgressSeconds != nil {
		record.ProgressSeconds = *fields.ProgressSeconds
	}
	if fields.DurationSeconds != nil {
		record.DurationSeconds = *fields.DurationSeconds
	}
	if fields.LastSeason != nil {
		record.LastSeason = fields.LastSeason
	}
	if fields.LastEpisode != nil {
		record.LastEpisode = fields.LastEpisode
	}
	if fields.Title != "" {
		record.Title = fields.Title
	}
	if fields.PosterPath != "" {
		record.PosterPath = fields.PosterPath
	}
	if fields.ReleaseDate != "" {
		record.ReleaseDate = fields.ReleaseDate
	}
	if fields.Genres != "" {
		record.Genres = fields.Genres
	}
	if fields.RatingSnapshot != 0 {
		record.RatingSnapshot = fields.RatingSnapshot
	}

	// Duration 0 means unknown; once known, progress never exceeds it.
	if record.DurationSeconds > 0 && record.ProgressSeconds > record.DurationSeconds {
		record.ProgressSeconds = record.DurationSeconds
	}
}
