package domain

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is one entry of the conversation window.
type Message struct {
	Role    Role
	Content string
	Tokens  int
}

// StreamWriter receives completion deltas as they arrive.
type StreamWriter interface {
	WriteChunk(text string)
	Done()
}
