package watchstate

import (
	"time"

	"github.com/namecoder1/famflix/internal/database"
)

// Action is an explicit user action that changes a title's list status.
type Action string

const (
	ActionAddToList      Action = "add_to_list"
	ActionRemoveFromList Action = "remove_from_list"
	ActionToggleFavorite Action = "toggle_favorite"
	ActionStopTracking   Action = "stop_tracking"
	ActionResume         Action = "resume"
)

// stopTrackingCompletedRatio is the progress ratio above which dismissing a
// title from continue-watching counts it as completed rather than dropped.
// Distinct from the sampler's near-end hint threshold; the two must not be
// unified.
const stopTrackingCompletedRatio = 0.8

// Metadata carries the caller-supplied display metadata captured on every
// transition. Stale denormalized fields are a defect, so every action
// refreshes them even when only status or favorite changes.
type Metadata struct {
	MediaType       MediaType
	Title           string
	PosterPath      string
	ReleaseDate     string
	Genres          string // JSON-encoded genre list
	Rating          float64
	DurationSeconds int64
}

// Derive computes the new record produced by applying an action to the
// current record. It is a total function: current may be nil (no existing
// record), and the result is always a complete record. It performs no I/O.
func Derive(current *database.WatchRecord, action Action, meta Metadata) database.WatchRecord {
	var next database.WatchRecord
	if current != nil {
		next = *current
	}

	switch action {
	case ActionAddToList:
		if current == nil || next.Status == StatusNone.String() {
			next.Status = StatusPlanToWatch.String()
		}
		if current == nil {
			next.IsFavorite = false
		}

	case ActionRemoveFromList:
		// Full clear, not a partial edit. The row itself may stay around as
		// a soft-deleted tombstone.
		next.Status = StatusNone.String()
		next.IsFavorite = false

	case ActionToggleFavorite:
		if current == nil {
			next.Status = StatusPlanToWatch.String()
			next.IsFavorite = true
		} else {
			next.IsFavorite = !next.IsFavorite
		}

	case ActionStopTracking:
		duration := next.DurationSeconds
		if duration < 1 {
			duration = 1
		}
		ratio := float64(next.ProgressSeconds) / float64(duration)
		if ratio > stopTrackingCompletedRatio {
			next.Status = StatusCompleted.String()
		} else {
			next.Status = StatusDropped.String()
		}

	case ActionResume:
		if next.ProgressSeconds > 0 {
			next.Status = StatusWatching.String()
		} else {
			next.Status = StatusPlanToWatch.String()
		}
	}

	applyMetadata(&next, meta)
	next.UpdatedAt = time.Now()
	if current == nil {
		next.CreatedAt = next.UpdatedAt
	}

	return next
}

// applyMetadata refreshes the denormalized display fields from the supplied
// metadata. Empty values never overwrite known ones.
func applyMetadata(record *database.WatchRecord, meta Metadata) {
	if meta.MediaType != "" {
		record.MediaType = meta.MediaType.String()
	}
	if meta.Title != "" {
		record.Title = meta.Title
	}
	if meta.PosterPath != "" {
		record.PosterPath = meta.PosterPath
	}
	if meta.ReleaseDate != "" {
		record.ReleaseDate = meta.ReleaseDate
	}
	if meta.Genres != "" {
		record.Genres = meta.Genres
	}
	if meta.Rating != 0 {
		record.RatingSnapshot = meta.Rating
	}
	if meta.DurationSeconds > 0 {
		record.DurationSeconds = meta.DurationSeconds
		if record.ProgressSeconds > record.DurationSeconds {
			record.ProgressSeconds = record.DurationSeconds
		}
	}
}
