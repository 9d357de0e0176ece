package aigateway

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Explanation is a narrated record explanation. Audio is base64 PCM and
// empty when speech could not be produced.
type Explanation struct {
	Text   string
	Audio  string
	Failed bool
}

// Assistant wraps a Gateway and never fails: every error becomes a canned
// response and a log line.
type Assistant struct {
	gw     Gateway
	tips   TipCache
	logger zerolog.Logger
	onTip  func(ctx context.Context, day, tip string)
}

// NewAssistant creates an Assistant. A nil cache selects an in-process one.
func NewAssistant(gw Gateway, tips TipCache, logger zerolog.Logger) *Assistant {
	if tips == nil {
		tips = NewMemoryTipCache()
	}
	return &Assistant{gw: gw, tips: tips, logger: logger.With().Str("component", "aigateway").Logger()}
}

// OnNewTip registers fn to be called when a day's tip is fetched from the
// gateway. Cached and fallback tips do not trigger it.
func (a *Assistant) OnNewTip(fn func(ctx context.Context, day, tip string)) {
	a.onTip = fn
}

// StartChat opens a conversation. A failure yields a local conversation so
// the next message still gets an answer or the connection fallback.
func (a *Assistant) StartChat(ctx context.Context) *Conversation {
	conv, err := a.gw.StartChat(ctx)
	if err != nil || conv == nil {
		a.logger.Warn().Err(err).Msg("start chat failed")
		return NewConversation(SystemInstruction)
	}
	return conv
}

// Reply sends text and returns the assistant's answer. isError is set when
// the answer is the connection fallback.
func (a *Assistant) Reply(ctx context.Context, conv *Conversation, text string) (reply string, isError bool) {
	if conv == nil {
		conv = a.StartChat(ctx)
	}
	out, err := a.gw.SendMessage(ctx, conv, text)
	if err != nil {
		a.logger.Error().Err(err).Str("conversation_id", conv.ID).Msg("chat message failed")
		return ChatErrorReply, true
	}
	if strings.TrimSpace(out) == "" {
		return ChatEmptyReply, false
	}
	return out, false
}

// Explain produces a plain-language explanation of a record summary and
// its narration.
func (a *Assistant) Explain(ctx context.Context, summary, language string) Explanation {
	text, err := a.gw.ExplainText(ctx, summary, language)
	if err != nil {
		a.logger.Error().Err(err).Str("language", language).Msg("explanation failed")
		return Explanation{Text: ExplainErrorText, Failed: true}
	}
	if strings.TrimSpace(text) == "" {
		text = ExplainEmptyText
	}

	audio, err := a.gw.Synthesize(ctx, text)
	if err != nil {
		a.logger.Warn().Err(err).Msg("speech synthesis failed")
		return Explanation{Text: text}
	}
	return Explanation{Text: text, Audio: audio}
}

// DailyTip returns the tip for day, asking the gateway once per day. Cache
// failures fall through to the gateway. A failed tip is not cached.
func (a *Assistant) DailyTip(ctx context.Context, day string) string {
	tip, ok, err := a.tips.Get(ctx, day)
	if err != nil {
		a.logger.Warn().Err(err).Msg("tip cache read failed")
	}
	if ok && tip != "" {
		return tip
	}

	tip, err = a.gw.DailyTip(ctx)
	if err != nil || tip == "" {
		if err != nil {
			a.logger.Warn().Err(err).Msg("daily tip failed")
		}
		return FallbackTip
	}
	if err := a.tips.Set(ctx, day, tip); err != nil {
		a.logger.Warn().Err(err).Msg("tip cache write failed")
	}
	if a.onTip != nil {
		a.onTip(ctx, day, tip)
	}
	return tip
}
