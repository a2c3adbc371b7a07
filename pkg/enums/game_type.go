package enums

import "fmt"

// GameType identifies the game variant a session is created for.
type GameType string

const (
	GameTypeAIInstant GameType = "ai_instant"
	GameTypePVP       GameType = "pvp"
)

var validGameTypes = []GameType{
	GameTypeAIInstant,
	GameTypePVP,
}

// String implements fmt.Stringer.
func (g GameType) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GameType.
func (g GameType) IsValid() bool {
	for _, candidate := range validGameTypes {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGameType converts raw input into a GameType.
func ParseGameType(value string) (GameType, error) {
	for _, candidate := range validGameTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid game type %q", value)
}
