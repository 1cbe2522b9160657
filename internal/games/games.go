package games

import (
	"errors"
	"strings"
)

// Color is the side a player had in a game.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// ErrInvalidColor is returned when a color is neither white nor black.
var ErrInvalidColor = errors.New("color must be white or black")

// ParseColor normalizes a user-supplied color.
func ParseColor(raw string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return "", ErrInvalidColor
	}
}

// Metadata holds the free-form tag values recorded alongside a game.
type Metadata struct {
	Opponent string `json:"opponent,omitempty"`
	Result   string `json:"result,omitempty"`
	Event    string `json:"event,omitempty"`
	Date     string `json:"date,omitempty"`
	Opening  string `json:"opening,omitempty"`
	ECO      string `json:"eco,omitempty"`
}

// Outcome is a game result seen from one side.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeWin
	OutcomeLoss
	OutcomeDraw
)

// OutcomeFor maps a PGN result string ("1-0", "0-1", "1/2-1/2") to the
// outcome for the given color. Unfinished or unrecognized results are
// OutcomeUnknown.
func OutcomeFor(result string, color Color) Outcome {
	switch normalizeResult(result) {
	case "1-0":
		if color == White {
			return OutcomeWin
		}
		if color == Black {
			return OutcomeLoss
		}
	case "0-1":
		if color == Black {
			return OutcomeWin
		}
		if color == White {
			return OutcomeLoss
		}
	case "1/2-1/2":
		if color == White || color == Black {
			return OutcomeDraw
		}
	}
	return OutcomeUnknown
}

func normalizeResult(raw string) string {
	r := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	r = strings.ReplaceAll(r, "½", "1/2")
	switch r {
	case "1-0", "0-1", "1/2-1/2":
		return r
	case "0.5-0.5":
		return "1/2-1/2"
	default:
		return ""
	}
}
