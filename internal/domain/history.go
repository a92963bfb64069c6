package domain

// Role tags who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged entry of a conversation.
type Turn struct {
	Role    Role
	Content string
}

// History is the ordered record of a conversation.
// Turns are only ever added in user/assistant pairs.
type History struct {
	turns []Turn
}

// NewHistory returns an empty conversation.
func NewHistory() *History { return &History{} }

// Append records a question and its answer together.
func (h *History) Append(question, reply string) {
	h.turns = append(h.turns,
		Turn{Role: RoleUser, Content: question},
		Turn{Role: RoleAssistant, Content: reply},
	)
}

// Turns returns a copy of the recorded turns.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of recorded turns.
func (h *History) Len() int { return len(h.turns) }
