// Package aigateway adapts the generative AI service used for the chat
// assistant, record explanations, narration and the daily tip.
package aigateway

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNotConfigured is returned by the offline gateway.
	ErrNotConfigured = errors.New("ai gateway is not configured")
	// ErrEmptyResponse is returned when the service answers without content.
	ErrEmptyResponse = errors.New("ai gateway returned no content")
)

// Languages an explanation can be requested in.
var Languages = []string{"English", "Spanish", "French", "Hindi", "Arabic", "Chinese (Mandarin)"}

// DefaultLanguage is preselected on the records screen.
const DefaultLanguage = "English"

// IsSupportedLanguage reports whether lang is one of Languages.
func IsSupportedLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Turn is one exchange entry of a conversation.
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// Conversation is a chat with the assistant. The history lives on this side
// of the API and is sent with every message.
type Conversation struct {
	ID                string
	SystemInstruction string

	mu      sync.Mutex
	history []Turn
}

// NewConversation starts an empty conversation.
func NewConversation(systemInstruction string) *Conversation {
	return &Conversation{ID: uuid.New().String(), SystemInstruction: systemInstruction}
}

// History returns a copy of the exchanged turns.
func (c *Conversation) History() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Turn(nil), c.history...)
}

// record appends a completed exchange.
func (c *Conversation) record(user, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, Turn{Role: "user", Text: user}, Turn{Role: "model", Text: model})
}

// Gateway is the external generative AI service.
type Gateway interface {
	StartChat(ctx context.Context) (*Conversation, error)
	SendMessage(ctx context.Context, conv *Conversation, text string) (string, error)
	ExplainText(ctx context.Context, summary, language string) (string, error)
	// Synthesize returns base64 16-bit PCM speech for text.
	Synthesize(ctx context.Context, text string) (string, error)
	DailyTip(ctx context.Context) (string, error)
}

// Offline is the gateway used when no API key is configured. Every call
// fails so callers fall back to their canned responses.
type Offline struct{}

func (Offline) StartChat(context.Context) (*Conversation, error) {
	return NewConversation(SystemInstruction), nil
}

func (Offline) SendMessage(context.Context, *Conversation, string) (string, error) {
	return "", ErrNotConfigured
}

func (Offline) ExplainText(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (Offline) Synthesize(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func (Offline) DailyTip(context.Context) (string, error) {
	return "", ErrNotConfigured
}
