package chat

// Role identifies who authored a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of an organ chat. An assistant message grows while
// Streaming is true and is frozen once the stream terminates.
type Message struct {
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Streaming bool   `json:"isStreaming"`
}

// Request is the body accepted by the chat relay.
type Request struct {
	Organ    string `json:"organ"`
	Question string `json:"question"`
}

// Event is one frame of the relay's event stream. Exactly one of Text or
// Error is set.
type Event struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}
