package reasoning

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errNoObject       = errors.New("no JSON object found")
	errUnbalanced     = errors.New("unterminated JSON object")
	errMissingSummary = errors.New("summary is required")
)

// ExtractObject returns the first balanced {...} span in text. Braces inside
// JSON strings are ignored.
func ExtractObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errNoObject
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errUnbalanced
}

type payload struct {
	Critique
	Puzzles []rawPuzzle `json:"puzzles"`
}

type rawPuzzle struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	FEN         string   `json:"fen"`
	Position    string   `json:"position"`
	Solution    moveList `json:"solution"`
	Hint        string   `json:"hint"`
	Difficulty  string   `json:"difficulty"`
	Theme       string   `json:"theme"`
}

// moveList accepts either a JSON array of moves or a single space separated string.
type moveList []string

func (m *moveList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*m = cleanMoves(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("solution must be a list of moves or a string")
	}
	*m = cleanMoves(strings.Fields(s))
	return nil
}

func cleanMoves(in []string) []string {
	out := make([]string, 0, len(in))
	for _, mv := range in {
		if mv = strings.TrimSpace(mv); mv != "" {
			out = append(out, mv)
		}
	}
	return out
}

// parseResponse extracts, decodes and validates a raw model response.
func parseResponse(raw string) (Critique, []PuzzleCandidate, []string, error) {
	span, err := ExtractObject(raw)
	if err != nil {
		return Critique{}, nil, nil, &ResponseParseError{Reason: "extract", Raw: raw, Err: err}
	}

	var p payload
	if err := json.Unmarshal([]byte(span), &p); err != nil {
		return Critique{}, nil, nil, &ResponseParseError{Reason: "decode", Raw: raw, Err: err}
	}
	if strings.TrimSpace(p.Summary) == "" {
		return Critique{}, nil, nil, &ResponseParseError{Reason: "validate", Raw: raw, Err: errMissingSummary}
	}

	var warnings []string
	if len(p.Puzzles) == 0 {
		warnings = append(warnings, "response contained no puzzles")
	}
	candidates := make([]PuzzleCandidate, 0, len(p.Puzzles))
	for i, rp := range p.Puzzles {
		fen := strings.TrimSpace(rp.FEN)
		if fen == "" {
			fen = strings.TrimSpace(rp.Position)
		}
		if fen == "" || len(rp.Solution) == 0 {
			warnings = append(warnings, fmt.Sprintf("puzzle %d dropped: missing position or solution", i))
			continue
		}
		candidates = append(candidates, PuzzleCandidate{
			Title:       strings.TrimSpace(rp.Title),
			Description: strings.TrimSpace(rp.Description),
			FEN:         fen,
			Solution:    []string(rp.Solution),
			Hint:        strings.TrimSpace(rp.Hint),
			Difficulty:  NormalizeDifficulty(rp.Difficulty),
			Theme:       strings.TrimSpace(rp.Theme),
		})
	}
	return p.Critique, candidates, warnings, nil
}

// NormalizeDifficulty maps free-form difficulty to easy, medium or hard.
func NormalizeDifficulty(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy", "beginner":
		return DifficultyEasy
	case "hard", "difficult", "advanced":
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}
