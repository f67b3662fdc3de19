package database

import (
	"time"

	"gorm.io/gorm"
)

// Profile represents a family member profile. Profiles carry no credentials;
// they only partition watch state.
type Profile struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	AvatarURL string    `gorm:""`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (Profile) TableName() string {
	return "profiles"
}

// WatchRecord is the per-profile-per-title watch state. There is exactly one
// row per (profile, title); season and episode are progress attributes of the
// row, never part of its identity.
type WatchRecord struct {
	ID        uint   `gorm:"primaryKey"`
	ProfileID string `gorm:"not null;index;uniqueIndex:idx_profile_title"`
	TmdbID    int64  `gorm:"not null;index;uniqueIndex:idx_profile_title"`
	MediaType string `gorm:"not null"` // movie, tv

	// Status is empty when the title has no list relation. A row with empty
	// status and is_favorite=false is equivalent to no row at all.
	Status     string `gorm:"index;default:''"`
	IsFavorite bool   `gorm:"default:false"`

	ProgressSeconds int64 `gorm:"not null;default:0"`
	DurationSeconds int64 `gorm:"not null;default:0"` // 0 = unknown

	// Most recently active episode for TV titles, not necessarily the
	// furthest-progressed one.
	LastSeason  *int `gorm:"default:NULL"`
	LastEpisode *int `gorm:"default:NULL"`

	// Denormalized display metadata captured at write time.
	Title          string  `gorm:"not null;default:''"`
	PosterPath     string  `gorm:"default:''"`
	ReleaseDate    string  `gorm:"default:''"`
	Genres         string  `gorm:"default:''"` // JSON-encoded genre list
	RatingSnapshot float64 `gorm:"default:0"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"index;default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (WatchRecord) TableName() string {
	return "watch_records"
}

// EpisodeProgress stores per-episode playback positions for TV titles. It is
// a sub-collection of WatchRecord keyed by season and episode.
type EpisodeProgress struct {
	ID        uint   `gorm:"primaryKey"`
	ProfileID string `gorm:"not null;index;uniqueIndex:idx_profile_episode"`
	TmdbID    int64  `gorm:"not null;index;uniqueIndex:idx_profile_episode"`
	Season    int    `gorm:"not null;uniqueIndex:idx_profile_episode"`
	Episode   int    `gorm:"not null;uniqueIndex:idx_profile_episode"`

	ProgressSeconds int64 `gorm:"not null;default:0"`
	DurationSeconds int64 `gorm:"not null;default:0"`

	UpdatedAt time.Time `gorm:"index;default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (EpisodeProgress) TableName() string {
	return "episode_progress"
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Profile{},
		&WatchRecord{},
		&EpisodeProgress{},
	)
}
