package enums

import "fmt"

// GameFormat is the number of rounds a session plays: a best-of series.
type GameFormat int

const (
	GameFormatSingle      GameFormat = 1
	GameFormatBestOfThree GameFormat = 3
	GameFormatBestOfFive  GameFormat = 5
	GameFormatBestOfSeven GameFormat = 7
)

var validGameFormats = []GameFormat{
	GameFormatSingle,
	GameFormatBestOfThree,
	GameFormatBestOfFive,
	GameFormatBestOfSeven,
}

// IsValid reports whether the value is a recognized rounds count.
func (g GameFormat) IsValid() bool {
	for _, candidate := range validGameFormats {
		if candidate == g {
			return true
		}
	}
	return false
}

// WinsNeeded returns how many round wins decide the series.
func (g GameFormat) WinsNeeded() int {
	return int(g)/2 + 1
}

// ParseGameFormat converts a rounds count into a GameFormat.
func ParseGameFormat(rounds int) (GameFormat, error) {
	for _, candidate := range validGameFormats {
		if int(candidate) == rounds {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("invalid game format %d", rounds)
}
