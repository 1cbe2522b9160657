package reasoning

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"strings"
)

// PromptVersion identifies the embedded template revision.
const PromptVersion = "game_review_v1"

//go:embed prompts/game_review_v1.txt
var gameReviewV1 string

const unknownValue = "unknown"

// BuildPrompt renders the review prompt for in. The output depends only on in.
func BuildPrompt(in Input) string {
	color := string(in.SubjectColor)
	if color == "" {
		color = unknownValue
	}
	r := strings.NewReplacer(
		"{{SUBJECT_NAME}}", orUnknown(in.SubjectName),
		"{{SUBJECT_COLOR}}", color,
		"{{OPPONENT}}", orUnknown(in.Metadata.Opponent),
		"{{RESULT}}", orUnknown(in.Metadata.Result),
		"{{EVENT}}", orUnknown(in.Metadata.Event),
		"{{DATE}}", orUnknown(in.Metadata.Date),
		"{{OPENING}}", orUnknown(in.Metadata.Opening),
		"{{ECO}}", orUnknown(in.Metadata.ECO),
		"{{GAME_TEXT}}", strings.TrimSpace(in.GameText),
	)
	return r.Replace(gameReviewV1)
}

// HashPrompt returns the hex SHA-256 of prompt.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return unknownValue
	}
	return v
}
