package playback

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/namecoder1/famflix/internal/mediacache"
	"github.com/namecoder1/famflix/internal/player"
	"github.com/namecoder1/famflix/internal/player/source"
	"github.com/namecoder1/famflix/internal/watchstate"
)

var (
	ErrProfileRequired = errors.New("a profile must be selected before playback")
	ErrTitleRequired   = errors.New("tmdb id is required")
	ErrEpisodeRequired = errors.New("season and episode are required for tv playback")
)

// Options configures a playback session.
type Options struct {
	ProfileID string
	Ref       source.Ref
	StartTime int64 // seconds
	Meta      watchstate.Metadata

	Store   *watchstate.Service
	Cache   *mediacache.Cache // optional; progress ticks update it when set
	Sources *source.Selector  // optional; Begin returns "" without one

	Interval time.Duration
	Visible  player.VisibilityFunc
	Logger   *slog.Logger
}

// Session is one continuous playback attempt for a title. It owns the
// sampler for its lifetime: inbound player messages flow through
// HandleMessage, the sampler's tick persists progress to the store and
// mirrors it into the media cache.
type Session struct {
	opts    Options
	sampler *player.Sampler
	key     player.SessionKey
}

// NewSession validates the inputs and builds the session. Nothing is
// persisted and no timer runs until Begin.
func NewSession(opts Options) (*Session, error) {
	if strings.TrimSpace(opts.ProfileID) == "" {
		return nil, ErrProfileRequired
	}
	if opts.Ref.TmdbID <= 0 {
		return nil, ErrTitleRequired
	}
	if opts.Ref.MediaType == "tv" && (opts.Ref.Season < 1 || opts.Ref.Episode < 1) {
		return nil, ErrEpisodeRequired
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	session := &Session{
		opts: opts,
		key: player.SessionKey{
			TmdbID:    opts.Ref.TmdbID,
			MediaType: opts.Ref.MediaType,
			Season:    opts.Ref.Season,
			Episode:   opts.Ref.Episode,
		},
	}

	session.sampler = player.NewSampler(player.SamplerOptions{
		Interval: opts.Interval,
		Visible:  opts.Visible,
		Logger:   opts.Logger,
		Persist:  session.persist,
	})

	return session, nil
}

// Begin starts the session at the configured position and returns the embed
// URL, probing the primary source and substituting the fallback when it is
// unavailable.
func (s *Session) Begin(ctx context.Context) string {
	s.sampler.StartSession(s.key, float64(s.opts.StartTime))
	s.sampler.Start(ctx)

	if s.opts.Sources == nil {
		return ""
	}
	return s.opts.Sources.Resolve(ctx, s.opts.Ref, s.opts.StartTime)
}

// HandleMessage feeds one raw message from the embedded player into the
// session. Unrecognized payloads are dropped silently.
func (s *Session) HandleMessage(payload any) {
	s.sampler.Handle(player.Decode(payload))
}

// NearEnd reports whether the next-episode affordance should be offered.
func (s *Session) NearEnd() bool {
	return s.sampler.NearEnd()
}

// Snapshot exposes the sampler's current view, for consumers that render a
// resume position.
func (s *Session) Snapshot() player.Snapshot {
	return s.sampler.Snapshot()
}

// End tears the session down. An in-flight progress write completes; no
// further writes are scheduled.
func (s *Session) End() {
	s.sampler.Stop()
}

// persist is the sampler's tick target: one store write per eligible tick,
// mirrored optimistically into the cache so continue-watching rows move
// without a reload.
func (s *Session) persist(_ context.Context, snap player.Snapshot) error {
	progress := int64(math.Floor(snap.CurrentTime))
	duration := int64(math.Floor(snap.Duration))

	var seasonPtr, episodePtr *int
	if snap.Key.MediaType == "tv" {
		season, episode := snap.Key.Season, snap.Key.Episode
		seasonPtr, episodePtr = &season, &episode
	}

	_, err := s.opts.Store.SaveProgress(s.opts.ProfileID, snap.Key.TmdbID,
		seasonPtr, episodePtr, progress, duration, s.opts.Meta)
	if err != nil {
		return err
	}

	if s.opts.Cache != nil {
		update := mediacache.Update{
			TmdbID:          snap.Key.TmdbID,
			MediaType:       s.opts.Meta.MediaType,
			ProgressSeconds: &progress,
			LastSeason:      seasonPtr,
			LastEpisode:     episodePtr,
			Title:           s.opts.Meta.Title,
			PosterPath:      s.opts.Meta.PosterPath,
			ReleaseDate:     s.opts.Meta.ReleaseDate,
			Genres:          s.opts.Meta.Genres,
			RatingSnapshot:  s.opts.Meta.Rating,
		}
		if duration > 0 {
			update.DurationSeconds = &duration
		}
		s.opts.Cache.ApplyOptimistic(update)
	}

	return nil
}

// ResumePoint returns the position a new session should start from: the
// record's overall progress for movies, the stored position of the exact
// episode for TV. Unknown titles and unseen episodes start at zero.
func ResumePoint(store *watchstate.Service, profileID string, ref source.Ref) (int64, error) {
	if ref.MediaType == "tv" {
		rows, err := store.BulkGetEpisodeProgress(profileID, ref.TmdbID)
		if err != nil {
			return 0, err
		}
		for _, row := range rows {
			if row.Season == ref.Season && row.Episode == ref.Episode {
				return row.ProgressSeconds, nil
			}
		}
		return 0, nil
	}

	record, err := store.GetWatchRecord(profileID, ref.TmdbID)
	if err != nil || record == nil {
		return 0, err
	}
	return record.ProgressSeconds, nil
}
