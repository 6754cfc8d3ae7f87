package chat

import (
	"strings"

	"github.com/google/uuid"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// GreetingID is the sentinel id of the seeded assistant greeting.
const GreetingID = "initial"

// GreetingContent opens every new conversation.
const GreetingContent = "Hi 👋, You can ask me anything! Be professional about it..."

// ApologyContent replaces a reply when the completion stream fails.
const ApologyContent = "Sorry, I am all out of tokens. 🤷🏻‍♂️"

// Turn is one message of a conversation.
type Turn struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the {role, content} wire shape sent to model-backed services.
type Prompt struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Greeting returns the seeded first turn of a conversation.
func Greeting() Turn {
	return Turn{ID: GreetingID, Role: RoleAssistant, Content: GreetingContent}
}

// NewTurn creates a turn with a fresh time-ordered id.
func NewTurn(role Role, content string) Turn {
	return Turn{ID: NewTurnID(), Role: role, Content: content}
}

// NewTurnID returns a UUIDv7 so ids sort by creation time.
func NewTurnID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Prompt drops the id.
func (t Turn) Prompt() Prompt {
	return Prompt{Role: t.Role, Content: t.Content}
}

// Prompts maps turns to their wire shape.
func Prompts(turns []Turn) []Prompt {
	out := make([]Prompt, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Prompt())
	}
	return out
}

// ParseRole normalizes a role string; unknown roles report false.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, true
	case RoleAssistant:
		return RoleAssistant, true
	case RoleSystem:
		return RoleSystem, true
	default:
		return "", false
	}
}
