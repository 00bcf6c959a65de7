// Package history keeps the bounded conversation window sent to the
// provider with each turn.
package history

import "slices"

// DefaultLimit is the number of turns kept.
const DefaultLimit = 10

// Roles of a turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message in the conversation.
type Turn struct {
	Role    string `json:"role" msgpack:"role"`
	Content string `json:"content" msgpack:"content"`
}

// History is a FIFO of the most recent turns. The zero value uses
// DefaultLimit. It is not safe for concurrent use; sessions own one each.
type History struct {
	Limit int    `json:"limit,omitempty" msgpack:"limit,omitempty"`
	Turns []Turn `json:"turns" msgpack:"turns"`
}

// New returns an empty history bounded to limit turns (default when <= 0).
func New(limit int) *History {
	return &History{Limit: limit}
}

func (h *History) limit() int {
	if h.Limit <= 0 {
		return DefaultLimit
	}
	return h.Limit
}

// Append adds a turn, dropping the oldest ones past the limit.
func (h *History) Append(role, content string) {
	h.Turns = append(h.Turns, Turn{Role: role, Content: content})
	if over := len(h.Turns) - h.limit(); over > 0 {
		h.Turns = slices.Delete(h.Turns, 0, over)
	}
}

// Window returns a copy of the retained turns, oldest first.
func (h *History) Window() []Turn {
	if h == nil {
		return nil
	}
	return slices.Clone(h.Turns)
}

// Len returns the number of retained turns.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Turns)
}

// Reset drops every turn.
func (h *History) Reset() { h.Turns = nil }
