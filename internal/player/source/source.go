package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Default embed hosts. The primary host supports resuming via a startAt
// query parameter; the fallback does not.
const (
	DefaultPrimaryBase  = "https://vixsrc.to"
	DefaultFallbackBase = "https://vidsrc.cc/v2/embed"
)

// Ref identifies the title (and episode, for TV) to embed.
type Ref struct {
	TmdbID    int64
	MediaType string // movie, tv
	Season    int
	Episode   int
}

// Config holds configuration for the source selector.
type Config struct {
	PrimaryBase  string
	FallbackBase string
	ProbeTimeout time.Duration
	UserAgent    string
	Logger       *slog.Logger
}

// Selector probes the primary embed URL before handing it to the consumer
// and substitutes the fallback host when the primary is unavailable.
type Selector struct {
	primaryBase  string
	fallbackBase string
	client       *resty.Client
	logger       *slog.Logger
}

// NewSelector creates a source selector with the given configuration.
func NewSelector(cfg Config) *Selector {
	if cfg.PrimaryBase == "" {
		cfg.PrimaryBase = DefaultPrimaryBase
	}
	if cfg.FallbackBase == "" {
		cfg.FallbackBase = DefaultFallbackBase
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "famflix/1.0"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client := resty.New().
		SetTimeout(cfg.ProbeTimeout).
		SetRetryCount(1).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("User-Agent", cfg.UserAgent)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		// Retry transport errors and rate limiting, not hard 4xx misses.
		if err != nil {
			return true
		}
		return r.StatusCode() == 429
	})

	return &Selector{
		primaryBase:  cfg.PrimaryBase,
		fallbackBase: cfg.FallbackBase,
		client:       client,
		logger:       cfg.Logger,
	}
}

// PrimaryURL builds the primary embed URL without query parameters; this is
// also the URL that gets probed.
func (s *Selector) PrimaryURL(ref Ref) string {
	if ref.MediaType == "tv" {
		return fmt.Sprintf("%s/tv/%d/%d/%d", s.primaryBase, ref.TmdbID, ref.Season, ref.Episode)
	}
	return fmt.Sprintf("%s/movie/%d", s.primaryBase, ref.TmdbID)
}

// FallbackURL builds the fallback embed URL. The fallback host does not
// support a start position.
func (s *Selector) FallbackURL(ref Ref) string {
	if ref.MediaType == "tv" {
		return fmt.Sprintf("%s/tv/%d/%d/%d", s.fallbackBase, ref.TmdbID, ref.Season, ref.Episode)
	}
	return fmt.Sprintf("%s/movie/%d", s.fallbackBase, ref.TmdbID)
}

// Probe reports whether the primary embed responds for this title.
func (s *Selector) Probe(ctx context.Context, ref Ref) bool {
	resp, err := s.client.R().SetContext(ctx).Get(s.PrimaryURL(ref))
	if err != nil {
		s.logger.Debug("primary source probe failed", "tmdb_id", ref.TmdbID, "error", err)
		return false
	}
	return resp.StatusCode() >= 200 && resp.StatusCode() < 400
}

// Resolve returns the URL to embed: the primary URL with startAt applied
// when the probe succeeds, the fallback URL otherwise. Falling back is
// transparent recovery, not an error.
func (s *Selector) Resolve(ctx context.Context, ref Ref, startAt int64) string {
	if s.Probe(ctx, ref) {
		url := s.PrimaryURL(ref)
		if startAt > 0 {
			url = fmt.Sprintf("%s?startAt=%d", url, startAt)
		}
		return url
	}

	s.logger.Info("primary source unavailable, using fallback",
		"tmdb_id", ref.TmdbID, "media_type", ref.MediaType)
	return s.FallbackURL(ref)
}
