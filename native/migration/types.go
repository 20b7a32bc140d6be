package migration

// Status represents the phases of a migration attempt.
type Status uint8

const (
	StatusNotStarted Status = iota
	StatusStarted
	StatusFinished
	StatusCancelled
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusStarted, StatusFinished, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the attempt has concluded and may be destroyed.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusStarted:
		return "started"
	case StatusFinished:
		return "finished"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
