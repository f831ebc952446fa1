package pipeline

import (
	"errors"
	"strings"

	"github.com/square-key-labs/exobridge/src/session"
)

// ErrNoUserText is raised before any network call when the current
// user text is blank; the cheapest possible failure path.
var ErrNoUserText = errors.New("no user text provided")

// DefaultMaxHistory bounds the conversation window handed to the model.
const DefaultMaxHistory = 20

// FormatPrompt renders the full model prompt: the trimmed system
// prompt, a labeled window of the most recent turns (oldest first), and
// a trailing "User: <text>" line with no newline after it.
func FormatPrompt(history []session.Turn, systemPrompt, currentUserText string, maxMessages int) (string, error) {
	text := strings.TrimSpace(currentUserText)
	if text == "" {
		return "", ErrNoUserText
	}

	if maxMessages < 1 {
		maxMessages = 1
	}
	if len(history) > maxMessages {
		history = history[len(history)-maxMessages:]
	}

	var b strings.Builder
	if sys := strings.TrimSpace(systemPrompt); sys != "" {
		b.WriteString(sys)
		b.WriteString("\n\n")
	}

	if len(history) > 0 {
		b.WriteString("## Previous Conversation:\n")
		for _, turn := range history {
			if strings.EqualFold(turn.Role, "assistant") {
				b.WriteString("Assistant: ")
			} else {
				b.WriteString("User: ")
			}
			b.WriteString(turn.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("User: ")
	b.WriteString(text)
	return b.String(), nil
}
