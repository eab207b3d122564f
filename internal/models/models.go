package models

// Role identifies who authored a chat message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// ColorTag is the fixed set of persona accent colors
type ColorTag string

const (
	ColorCreative ColorTag = "creative"
	ColorCode     ColorTag = "code"
	ColorSage     ColorTag = "sage"
)

type Persona struct {
	ID                string
	Name              string
	Icon              string // glyph shown next to the persona's messages
	SystemInstruction string
	Color             ColorTag
}

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatThread is one persisted conversation. PersonaID is fixed at creation.
type ChatThread struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	PersonaID string        `json:"personaId"`
	Messages  []ChatMessage `json:"messages"`
}

// Clone returns a deep copy of the thread.
func (t ChatThread) Clone() ChatThread {
	msgs := make([]ChatMessage, len(t.Messages))
	copy(msgs, t.Messages)
	t.Messages = msgs
	return t
}

// LastMessage returns the trailing message, if any.
func (t ChatThread) LastMessage() (ChatMessage, bool) {
	if len(t.Messages) == 0 {
		return ChatMessage{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}
