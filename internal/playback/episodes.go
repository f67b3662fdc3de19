package playback

import (
	"sort"

	"github.com/namecoder1/famflix/internal/player/source"
)

// Season describes one season of a TV title as reported by the catalog.
// Season 0 holds specials and is never part of normal episode navigation.
type Season struct {
	Number       int
	EpisodeCount int
}

// DefaultSeason returns the season a fresh viewing starts from: the lowest
// numbered regular season with episodes. Specials are skipped. Returns 1
// when the list gives nothing usable.
func DefaultSeason(seasons []Season) int {
	best := 0
	for _, s := range seasons {
		if s.Number < 1 || s.EpisodeCount < 1 {
			continue
		}
		if best == 0 || s.Number < best {
			best = s.Number
		}
	}
	if best == 0 {
		return 1
	}
	return best
}

// NextEpisode returns the episode following ref, rolling into the first
// episode of the next regular season when the current one runs out. The
// second return is false at the end of the series or when ref does not sit
// inside a known season.
func NextEpisode(ref source.Ref, seasons []Season) (source.Ref, bool) {
	if ref.MediaType != "tv" {
		return ref, false
	}

	ordered := make([]Season, 0, len(seasons))
	for _, s := range seasons {
		if s.Number >= 1 && s.EpisodeCount >= 1 {
			ordered = append(ordered, s)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	for i, s := range ordered {
		if s.Number != ref.Season {
			continue
		}
		if ref.Episode < s.EpisodeCount {
			next := ref
			next.Episode++
			return next, true
		}
		if i+1 < len(ordered) {
			next := ref
			next.Season = ordered[i+1].Number
			next.Episode = 1
			return next, true
		}
		return ref, false
	}

	return ref, false
}
