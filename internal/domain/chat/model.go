package chat

import "time"

// Role identifies who wrote a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Greeting opens every chat session.
const Greeting = "Hello! I am Kady, your Luminous Dental Care assistant. How can I help you today?"

// QuickActions are the canned prompts offered above the input box.
var QuickActions = []string{"Book Appointment", "Clinic Address", "Emergency"}

// Message is one entry of a chat transcript.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"isError,omitempty"`
}

// Session is one conversation with the assistant. Messages are only ever
// appended.
type Session struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}
