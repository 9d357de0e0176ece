package aigateway

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeGateway struct {
	reply      string
	replyErr   error
	explain    string
	explainErr error
	audio      string
	audioErr   error
	tip        string
	tipErr     error
	tipCalls   int
}

func (f *fakeGateway) StartChat(context.Context) (*Conversation, error) {
	return NewConversation(SystemInstruction), nil
}

func (f *fakeGateway) SendMessage(context.Context, *Conversation, string) (string, error) {
	return f.reply, f.replyErr
}

func (f *fakeGateway) ExplainText(context.Context, string, string) (string, error) {
	return f.explain, f.explainErr
}

func (f *fakeGateway) Synthesize(context.Context, string) (string, error) {
	return f.audio, f.audioErr
}

func (f *fakeGateway) DailyTip(context.Context) (string, error) {
	f.tipCalls++
	return f.tip, f.tipErr
}

func TestAssistant_Reply(t *testing.T) {
	tests := []struct {
		name      string
		gw        *fakeGateway
		wantText  string
		wantError bool
	}{
		{"answer", &fakeGateway{reply: "We open at 9AM."}, "We open at 9AM.", false},
		{"failure", &fakeGateway{replyErr: errors.New("boom")}, ChatErrorReply, true},
		{"empty", &fakeGateway{reply: "  "}, ChatEmptyReply, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssistant(tt.gw, nil, zerolog.Nop())
			conv := a.StartChat(context.Background())
			text, isErr := a.Reply(context.Background(), conv, "hi")
			if text != tt.wantText || isErr != tt.wantError {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.wantText, tt.wantError, text, isErr)
			}
		})
	}
}

func TestAssistant_Reply_Offline(t *testing.T) {
	a := NewAssistant(Offline{}, nil, zerolog.Nop())
	text, isErr := a.Reply(context.Background(), nil, "hi")
	if text != ChatErrorReply || !isErr {
		t.Errorf("expected connection fallback, got (%q, %v)", text, isErr)
	}
}

func TestAssistant_Explain(t *testing.T) {
	tests := []struct {
		name string
		gw   *fakeGateway
		want Explanation
	}{
		{"text and audio", &fakeGateway{explain: "All good.", audio: "UENN"}, Explanation{Text: "All good.", Audio: "UENN"}},
		{"text failure", &fakeGateway{explainErr: errors.New("down"), audio: "UENN"}, Explanation{Text: ExplainErrorText, Failed: true}},
		{"empty text", &fakeGateway{explain: "", audio: "UENN"}, Explanation{Text: ExplainEmptyText, Audio: "UENN"}},
		{"speech failure", &fakeGateway{explain: "All good.", audioErr: errors.New("tts down")}, Explanation{Text: "All good."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssistant(tt.gw, nil, zerolog.Nop())
			got := a.Explain(context.Background(), "summary", DefaultLanguage)
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestAssistant_DailyTip(t *testing.T) {
	gw := &fakeGateway{tip: "Brush twice."}
	a := NewAssistant(gw, nil, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if tip := a.DailyTip(context.Background(), "2024-05-01"); tip != "Brush twice." {
			t.Fatalf("unexpected tip %q", tip)
		}
	}
	if gw.tipCalls != 1 {
		t.Errorf("expected 1 gateway call for one day, got %d", gw.tipCalls)
	}
	a.DailyTip(context.Background(), "2024-05-02")
	if gw.tipCalls != 2 {
		t.Errorf("expected a new call on a new day, got %d", gw.tipCalls)
	}
}

func TestAssistant_DailyTip_Fallback(t *testing.T) {
	gw := &fakeGateway{tipErr: errors.New("down")}
	a := NewAssistant(gw, nil, zerolog.Nop())
	if tip := a.DailyTip(context.Background(), "2024-05-01"); tip != FallbackTip {
		t.Errorf("expected fallback tip, got %q", tip)
	}
	gw.tipErr = nil
	gw.tip = "Floss."
	if tip := a.DailyTip(context.Background(), "2024-05-01"); tip != "Floss." {
		t.Errorf("expected fallback not cached, got %q", tip)
	}
}

func TestAssistant_OnNewTip(t *testing.T) {
	gw := &fakeGateway{tipErr: errors.New("down")}
	a := NewAssistant(gw, nil, zerolog.Nop())
	var announced []string
	a.OnNewTip(func(_ context.Context, day, tip string) {
		announced = append(announced, day+"="+tip)
	})

	a.DailyTip(context.Background(), "2024-05-01")
	if len(announced) != 0 {
		t.Fatalf("fallback tip announced: %v", announced)
	}
	gw.tipErr = nil
	gw.tip = "Floss."
	a.DailyTip(context.Background(), "2024-05-01")
	a.DailyTip(context.Background(), "2024-05-01")
	if len(announced) != 1 || announced[0] != "2024-05-01=Floss." {
		t.Errorf("expected one announcement for the fetched tip, got %v", announced)
	}
}

func TestLanguages(t *testing.T) {
	if !IsSupportedLanguage("Chinese (Mandarin)") || IsSupportedLanguage("Klingon") {
		t.Error("unexpected language support")
	}
}
