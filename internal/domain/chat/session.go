package chat

import (
	"errors"
	"strings"
	"time"
)

var ErrEmptyMessage = errors.New("message text is required")

// NewSession starts a conversation containing only the greeting.
func NewSession(id, greetingID string, now time.Time) Session {
	return Session{
		ID: id,
		Messages: []Message{
			{ID: greetingID, Role: RoleModel, Text: Greeting, Timestamp: now},
		},
	}
}

// Append returns a copy of the session with msg added at the end.
func (s Session) Append(msg Message) Session {
	msgs := make([]Message, 0, len(s.Messages)+1)
	msgs = append(msgs, s.Messages...)
	s.Messages = append(msgs, msg)
	return s
}

// UserMessage validates and builds a message typed by the patient.
func UserMessage(id, text string, now time.Time) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	return Message{ID: id, Role: RoleUser, Text: text, Timestamp: now}, nil
}

// History returns the transcript without the greeting and error replies,
// which is what the model needs to continue the conversation.
func (s Session) History() []Message {
	out := make([]Message, 0, len(s.Messages))
	for i, m := range s.Messages {
		if i == 0 && m.Role == RoleModel && m.Text == Greeting {
			continue
		}
		if m.IsError {
			continue
		}
		out = append(out, m)
	}
	return out
}
