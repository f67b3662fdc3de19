package player

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// NearEndThreshold is the completion ratio at which the "next episode"
// affordance becomes available. It is a UI hint only and never completes a
// record on its own.
const NearEndThreshold = 0.93

// DefaultSaveInterval is how often the sampler persists the current snapshot
// while playback is active and visible.
const DefaultSaveInterval = 60 * time.Second

// SessionKey identifies one continuous playback attempt. Changing any
// component starts a new session. Season and Episode are zero for movies.
type SessionKey struct {
	TmdbID    int64
	MediaType string
	Season    int
	Episode   int
}

// Snapshot is the sampler's in-memory view of the active session.
type Snapshot struct {
	Key         SessionKey
	CurrentTime float64
	Duration    float64
	Playing     bool
}

// CompletionRatio returns progress as a fraction of duration, 0 while the
// duration is unknown.
func (s Snapshot) CompletionRatio() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return s.CurrentTime / s.Duration
}

// PersistFunc writes a snapshot to the watch-state store.
type PersistFunc func(ctx context.Context, snap Snapshot) error

// VisibilityFunc reports whether the consuming surface is foreground-visible.
type VisibilityFunc func() bool

// SamplerOptions configures a Sampler.
type SamplerOptions struct {
	// Interval between persistence ticks. Defaults to DefaultSaveInterval.
	Interval time.Duration
	// Persist is called with the current snapshot on each eligible tick.
	Persist PersistFunc
	// Visible gates persistence; defaults to always visible.
	Visible VisibilityFunc
	Logger  *slog.Logger
}

// Sampler holds the latest known playback state for the active session and
// throttles persistence to one write per tick. Signals keep mutating the
// snapshot while a write is in flight; a tick never reflects samples newer
// than the moment it fired. Persistence failures are logged and the next
// tick retries with then-current data.
type Sampler struct {
	mu   sync.Mutex
	snap Snapshot

	nearEnd bool

	interval time.Duration
	persist  PersistFunc
	visible  VisibilityFunc
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSampler creates a sampler. Persist may be nil, in which case ticks are
// no-ops (useful for consumers that only want the near-end flag).
func NewSampler(opts SamplerOptions) *Sampler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSaveInterval
	}
	if opts.Visible == nil {
		opts.Visible = func() bool { return true }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Sampler{
		interval: opts.Interval,
		persist:  opts.Persist,
		visible:  opts.Visible,
		logger:   opts.Logger,
	}
}

// StartSession resets the snapshot for a new session beginning at startTime
// seconds. Any previous session state is discarded.
func (s *Sampler) StartSession(key SessionKey, startTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if startTime < 0 {
		startTime = 0
	}
	s.snap = Snapshot{Key: key, CurrentTime: startTime}
	s.nearEnd = false
}

// Handle applies a normalized signal to the in-memory snapshot. Signals are
// applied in arrival order; unrecognized ones change nothing.
func (s *Sampler) Handle(sig Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch sig.Kind {
	case SignalPlay:
		s.snap.Playing = true
	case SignalPause:
		s.snap.Playing = false
	case SignalTimeUpdate:
		s.snap.CurrentTime = sig.CurrentTime
		if sig.Duration > 0 {
			s.snap.Duration = sig.Duration
		}
		// Receiving time updates implies the player is running even if no
		// play message preceded them.
		s.snap.Playing = true
		// Recomputed on every update so a seek backward clears the flag.
		s.nearEnd = s.snap.CompletionRatio() >= NearEndThreshold
	}
}

// Snapshot returns a copy of the current in-memory state.
func (s *Sampler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// NearEnd reports whether the latest sample crossed the next-episode
// threshold.
func (s *Sampler) NearEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nearEnd
}

// Start launches the periodic persistence loop. Calling Start on a running
// sampler restarts the loop.
func (s *Sampler) Start(ctx context.Context) {
	s.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(runCtx, done)
}

// Stop ends the persistence loop. A write already in flight completes; no
// further writes are scheduled.
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Sampler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick issues at most one persistence write. Skips are silent: hidden
// surface, paused playback and zero progress all mean "nothing to save".
func (s *Sampler) tick(ctx context.Context) {
	if s.persist == nil {
		return
	}

	snap := s.Snapshot()
	if !s.visible() || !snap.Playing || snap.CurrentTime <= 0 {
		return
	}

	if err := s.persist(ctx, snap); err != nil {
		// One sample may be lost; the next tick retries with fresh data.
		s.logger.Warn("failed to persist playback progress",
			"tmdb_id", snap.Key.TmdbID,
			"media_type", snap.Key.MediaType,
			"error", err)
	}
}
