// Package puzzles stores training puzzles derived from analysed games.
package puzzles

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a puzzle id does not resolve for the caller.
var ErrNotFound = errors.New("puzzle not found")

// Puzzle is an immutable training position.
type Puzzle struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	SourceJobID *string   `json:"sourceJobId,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FEN         string    `json:"fen"`
	Solution    []string  `json:"solution"`
	Hint        *string   `json:"hint,omitempty"`
	Difficulty  string    `json:"difficulty"`
	Theme       string    `json:"theme"`
	CreatedAt   time.Time `json:"createdAt"`
}
