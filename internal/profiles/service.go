package profiles

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/namecoder1/famflix/internal/database"
	"github.com/namecoder1/famflix/internal/mediacache"
)

var (
	ErrNameRequired    = errors.New("profile name is required")
	ErrProfileNotFound = errors.New("profile not found")
)

// Service manages family profiles.
type Service struct {
	db *gorm.DB
}

// NewService creates a new profile service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create adds a new profile with a generated id.
func (s *Service) Create(name, avatarURL string) (database.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Profile{}, ErrNameRequired
	}

	profile := database.Profile{
		ID:        uuid.NewString(),
		Name:      name,
		AvatarURL: avatarURL,
	}
	if err := s.db.Create(&profile).Error; err != nil {
		return database.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}

	return profile, nil
}

// Get loads a profile by id.
func (s *Service) Get(id string) (database.Profile, error) {
	var profile database.Profile
	err := s.db.Where("id = ?", id).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return database.Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return database.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

// List returns all profiles in creation order.
func (s *Service) List() ([]database.Profile, error) {
	var result []database.Profile
	if err := s.db.Order("created_at ASC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return result, nil
}

// Delete removes a profile and its watch state.
func (s *Service) Delete(id string) error {
	if err := s.db.Where("profile_id = ?", id).Delete(&database.WatchRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete watch records: %w", err)
	}
	if err := s.db.Where("profile_id = ?", id).Delete(&database.EpisodeProgress{}).Error; err != nil {
		return fmt.Errorf("failed to delete episode progress: %w", err)
	}
	if err := s.db.Where("id = ?", id).Delete(&database.Profile{}).Error; err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// Selection binds the active profile to its freshly loaded media cache.
// Selecting a profile creates a new Selection; switching away discards it
// along with any optimistic state it accumulated.
type Selection struct {
	Profile database.Profile
	Cache   *mediacache.Cache
}

// Select loads the profile and populates a new cache for it. A failed cache
// load still yields a usable Selection: the cache is empty and flags the
// failure, so consumers degrade to no personalization.
func (s *Service) Select(id string, store mediacache.Lister) (*Selection, error) {
	profile, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	cache := mediacache.New(profile.ID)
	_ = cache.Load(store)

	return &Selection{Profile: profile, Cache: cache}, nil
}
