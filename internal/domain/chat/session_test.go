package chat

import (
	"errors"
	"testing"
	"time"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := NewSession("s1", "m0", now)
	if len(s.Messages) != 1 || s.Messages[0].Text != Greeting || s.Messages[0].Role != RoleModel {
		t.Fatalf("unexpected session: %+v", s)
	}
	if len(s.History()) != 0 {
		t.Error("greeting should not be part of history")
	}
}

func TestAppend_DoesNotAlias(t *testing.T) {
	now := time.Now()
	s := NewSession("s1", "m0", now)
	msg, err := UserMessage("m1", "  hi  ", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Text != "hi" {
		t.Errorf("expected trimmed text, got %q", msg.Text)
	}
	a := s.Append(msg)
	b := s.Append(Message{ID: "m2", Role: RoleUser, Text: "other"})
	if len(s.Messages) != 1 {
		t.Error("original session modified")
	}
	if a.Messages[1].ID != "m1" || b.Messages[1].ID != "m2" {
		t.Error("appends share backing storage")
	}
}

func TestUserMessage_Empty(t *testing.T) {
	if _, err := UserMessage("m1", "   ", time.Now()); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestHistory_SkipsErrors(t *testing.T) {
	s := NewSession("s1", "m0", time.Now()).
		Append(Message{ID: "m1", Role: RoleUser, Text: "hello"}).
		Append(Message{ID: "m2", Role: RoleModel, Text: "down", IsError: true})
	h := s.History()
	if len(h) != 1 || h[0].ID != "m1" {
		t.Errorf("unexpected history: %+v", h)
	}
}
