package reasoning

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr error
	}{
		{name: "bare", text: `{"a":1}`, want: `{"a":1}`},
		{name: "prose wrapped", text: "Sure! {\"a\":{\"b\":2}} hope it helps {\"c\":3}", want: `{"a":{"b":2}}`},
		{name: "brace in string", text: `{"a":"}{"}`, want: `{"a":"}{"}`},
		{name: "escaped quote", text: `{"a":"say \"}\" now"} tail`, want: `{"a":"say \"}\" now"}`},
		{name: "fenced", text: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "none", text: "I cannot analyse this game.", wantErr: errNoObject},
		{name: "unbalanced", text: `{"a":{"b":1}`, wantErr: errUnbalanced},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractObject: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ExtractObject = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseResponseSplitsPuzzles(t *testing.T) {
	critique, puzzles, warnings, err := parseResponse(validResponse)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if critique.Summary == "" || critique.Phases.Middlegame == "" {
		t.Fatalf("critique not decoded: %+v", critique)
	}
	if len(critique.KeyMoments) != 3 || !critique.KeyMoments[1].IsMistake {
		t.Fatalf("unexpected key moments %+v", critique.KeyMoments)
	}
	if len(puzzles) != 2 {
		t.Fatalf("expected 2 puzzles, got %d", len(puzzles))
	}
	if puzzles[0].Difficulty != DifficultyMedium || puzzles[1].Difficulty != DifficultyMedium {
		t.Fatalf("expected normalized difficulties, got %q and %q", puzzles[0].Difficulty, puzzles[1].Difficulty)
	}
	if len(puzzles[1].Solution) != 3 || puzzles[1].Solution[0] != "Kb2" {
		t.Fatalf("expected string solution split into moves, got %v", puzzles[1].Solution)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
}

func TestParseResponseMissingPuzzlesIsWarning(t *testing.T) {
	_, puzzles, warnings, err := parseResponse(`{"summary":"ok","phases":{},"key_moments":[],"recommendations":[]}`)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if len(puzzles) != 0 {
		t.Fatalf("expected no puzzles, got %d", len(puzzles))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestParseResponseDropsIncompletePuzzles(t *testing.T) {
	raw := `{"summary":"ok","puzzles":[{"title":"no fen","solution":["e4"]},{"title":"no solution","fen":"8/8/8/8/8/8/8/K6k w - - 0 1"},{"position":"8/8/8/8/8/8/8/K6k w - - 0 1","solution":["Ka2"],"difficulty":"EASY"}]}`
	_, puzzles, warnings, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if len(puzzles) != 1 {
		t.Fatalf("expected 1 kept puzzle, got %d", len(puzzles))
	}
	want := PuzzleCandidate{
		FEN:        "8/8/8/8/8/8/8/K6k w - - 0 1",
		Solution:   []string{"Ka2"},
		Difficulty: DifficultyEasy,
	}
	if diff := cmp.Diff(want, puzzles[0]); diff != "" {
		t.Fatalf("kept puzzle mismatch (-want +got):\n%s", diff)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
}

func TestParseResponseFailsClosed(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{name: "no object", raw: "The engine is unavailable.", reason: "extract"},
		{name: "malformed", raw: `{"summary": "ok",}`, reason: "decode"},
		{name: "wrong type", raw: `{"summary": ["a"]}`, reason: "decode"},
		{name: "missing summary", raw: `{"phases":{"opening":"x"}}`, reason: "validate"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := parseResponse(tt.raw)
			var perr *ResponseParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ResponseParseError, got %v", err)
			}
			if perr.Reason != tt.reason {
				t.Fatalf("expected reason %q, got %q", tt.reason, perr.Reason)
			}
			if perr.Raw != tt.raw {
				t.Fatalf("expected raw text retained")
			}
		})
	}
}

func TestNormalizeDifficulty(t *testing.T) {
	cases := map[string]string{"easy": "easy", " HARD ": "hard", "advanced": "hard", "": "medium", "???": "medium"}
	for in, want := range cases {
		if got := NormalizeDifficulty(in); got != want {
			t.Fatalf("NormalizeDifficulty(%q) = %q, want %q", in, got, want)
		}
	}
}
