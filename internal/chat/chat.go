// Package chat defines the contract between the outfit system and the
// host chat application: the message model, the event stream, the opaque
// text generator, and the session view the macro engine reads.
package chat

import "context"

// Message is one chat transcript entry.
type Message struct {
	Text     string `json:"mes"`
	IsUser   bool   `json:"is_user"`
	IsSystem bool   `json:"is_system"`
	Name     string `json:"name,omitempty"`
}

// EventType enumerates host events the outfit system reacts to.
type EventType string

const (
	EventAppReady        EventType = "APP_READY"
	EventChatChanged     EventType = "CHAT_CHANGED"
	EventMessageReceived EventType = "MESSAGE_RECEIVED"
	EventMessageSwiped   EventType = "MESSAGE_SWIPED"
)

// Event carries the payload for one host event. Message is set for
// MESSAGE_RECEIVED; Index for MESSAGE_SWIPED.
type Event struct {
	Type    EventType
	Message *Message
	Index   int
}

// GenerateRequest is the input to the opaque text generator.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
}

// Generator is the host's LLM text generation call. Quality and behavior
// of the model are out of scope; the result is just text.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

// Session is the read-only view of the live chat the outfit system needs:
// the transcript plus the identity fields that back {{char}} and {{user}}.
type Session interface {
	// Messages returns the transcript, oldest first.
	Messages() []Message
	// CharacterID identifies the active character; stable across renames.
	CharacterID() string
	// CharacterName is the active character's display name.
	CharacterName() string
	// PersonaName is the user persona's display name.
	PersonaName() string
	// ChatID identifies the active chat file/session in the host.
	ChatID() string
	// CharacterIDByName resolves a display name to a character id;
	// returns "" when unknown.
	CharacterIDByName(name string) string
}

// FirstBotMessage returns the first non-user, non-system message, which
// anchors instance identity. ok is false for an empty or user-only chat.
func FirstBotMessage(messages []Message) (Message, bool) {
	for _, m := range messages {
		if !m.IsUser && !m.IsSystem {
			return m, true
		}
	}
	return Message{}, false
}

// LastSpeakerName returns the most recent speaker name for the requested
// side of the conversation, or "" when none exists.
func LastSpeakerName(messages []Message, user bool) string {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.IsSystem || m.IsUser != user {
			continue
		}
		if m.Name != "" {
			return m.Name
		}
	}
	return ""
}
