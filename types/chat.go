package types

import "time"

// Role identifies the sender of a chat message.
type Role string

const (
	// RoleUser represents messages sent to the evaluated agent.
	RoleUser Role = "user"

	// RoleAssistant represents replies from the evaluated agent.
	RoleAssistant Role = "assistant"
)

// IsValid checks if the role is one of the defined constants.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ChatMessage represents a single turn in a conversation with the
// evaluated agent.
type ChatMessage struct {
	// Role indicates who sent the message (user or assistant).
	Role Role `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content"`

	// Timestamp is when the message was recorded. Optional on input;
	// ChatHistory.Add sets it on insert if absent.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ChatHistory is the ordered transcript of one conversation.
// It is append-only while a conversation is in flight.
type ChatHistory struct {
	// Messages contains the conversation turns in order.
	Messages []ChatMessage `json:"messages"`
}

// Add appends a message to the history, stamping the current time if the
// message carries no timestamp. Existing timestamps are preserved.
func (h *ChatHistory) Add(msg ChatMessage) {
	if msg.Timestamp == nil {
		now := time.Now().UTC()
		msg.Timestamp = &now
	}
	h.Messages = append(h.Messages, msg)
}

// AddUser appends a user-role message with the given content.
func (h *ChatHistory) AddUser(content string) {
	h.Add(ChatMessage{Role: RoleUser, Content: content})
}

// AddAssistant appends an assistant-role message with the given content.
func (h *ChatHistory) AddAssistant(content string) {
	h.Add(ChatMessage{Role: RoleAssistant, Content: content})
}

// Len returns the number of messages in the history.
func (h *ChatHistory) Len() int {
	return len(h.Messages)
}

// Last returns the most recent message, or a zero message if empty.
func (h *ChatHistory) Last() (ChatMessage, bool) {
	if len(h.Messages) == 0 {
		return ChatMessage{}, false
	}
	return h.Messages[len(h.Messages)-1], true
}
