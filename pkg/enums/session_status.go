package enums

import "fmt"

// SessionStatus tracks the lifecycle of a game session.
type SessionStatus string

const (
	SessionStatusWaiting    SessionStatus = "waiting"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusCancelled  SessionStatus = "cancelled"
	SessionStatusExpired    SessionStatus = "expired"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusWaiting,
	SessionStatusInProgress,
	SessionStatusCompleted,
	SessionStatusCancelled,
	SessionStatusExpired,
}

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SessionStatus.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
// A session never re-opens once it leaves waiting, except for the
// in_progress -> completed hand-off driven by the minigame outcome.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusCancelled, SessionStatusExpired:
		return true
	default:
		return false
	}
}

// ParseSessionStatus converts raw input into a SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}
