package watchstate

// Status represents the list status of a title for a profile. The empty
// value means the profile has no list relation to the title.
type Status string

const (
	StatusNone        Status = ""
	StatusPlanToWatch Status = "plan_to_watch"
	StatusWatching    Status = "watching"
	StatusCompleted   Status = "completed"
	StatusDropped     Status = "dropped"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a string into a Status
func ParseStatus(s string) (Status, error) {
	switch s {
	case "":
		return StatusNone, nil
	case "plan_to_watch", "planning":
		return StatusPlanToWatch, nil
	case "watching", "current":
		return StatusWatching, nil
	case "completed", "watched":
		return StatusCompleted, nil
	case "dropped":
		return StatusDropped, nil
	default:
		return "", &ErrInvalidStatus{Status: s}
	}
}

// ErrInvalidStatus is returned when an invalid status string is provided
type ErrInvalidStatus struct {
	Status string
}

func (e *ErrInvalidStatus) Error() string {
	return "invalid watch status: " + e.Status
}

// MediaType discriminates movies from TV shows.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// String returns the string representation of MediaType
func (m MediaType) String() string {
	return string(m)
}
