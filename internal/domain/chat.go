package domain

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageType identifies how a ChatMessage is rendered by the chat surface.
type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageAI     MessageType = "ai"
	MessageSystem MessageType = "system"
)

// ConversationTurn is one entry of the bounded history replayed into prompts.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GroundingSource points at a catalog record an answer was grounded on.
type GroundingSource struct {
	Type  string `json:"type"`
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// ChatMessage is the presentation-facing message appended to a session.
type ChatMessage struct {
	ID           string            `json:"id"`
	Type         MessageType       `json:"type"`
	Text         string            `json:"text"`
	Timestamp    string            `json:"timestamp"`
	Streaming    bool              `json:"isStreaming,omitempty"`
	Sources      []GroundingSource `json:"groundingSources,omitempty"`
	FunctionCall *SearchRequest    `json:"functionCall,omitempty"`
}
