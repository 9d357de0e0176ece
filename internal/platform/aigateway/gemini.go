package aigateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/"
	DefaultAPIVersion = "v1beta"
	DefaultChatModel  = "gemini-3-flash-preview"
	DefaultTTSModel   = "gemini-2.5-flash-preview-tts"
	DefaultVoice      = "Kore"
)

// GeminiConfig configures GeminiClient.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	ChatModel  string
	TTSModel   string
	Voice      string
	HTTPClient *http.Client
}

// GeminiClient implements Gateway with the Gemini API SDK.
type GeminiClient struct {
	cfg    GeminiConfig
	client *genai.Client
}

// NewGeminiClient creates a client, filling unset fields with defaults.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = DefaultTTSModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{cfg: cfg, client: client}, nil
}

func (g *GeminiClient) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", model, err)
	}
	return resp, nil
}

func firstParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, p := range firstParts(resp) {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// responseAudio returns the first inline data part of the first candidate,
// base64 encoded.
func responseAudio(resp *genai.GenerateContentResponse) string {
	for _, p := range firstParts(resp) {
		if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return base64.StdEncoding.EncodeToString(p.InlineData.Data)
		}
	}
	return ""
}

// StartChat implements Gateway. No request is made until the first message.
func (g *GeminiClient) StartChat(_ context.Context) (*Conversation, error) {
	return NewConversation(SystemInstruction), nil
}

// SendMessage implements Gateway. The exchange is added to the
// conversation history only when the service answers with text.
func (g *GeminiClient) SendMessage(ctx context.Context, conv *Conversation, text string) (string, error) {
	history := conv.History()
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(t.Role)))
	}
	contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))

	var config *genai.GenerateContentConfig
	if conv.SystemInstruction != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(conv.SystemInstruction, genai.RoleUser),
		}
	}

	resp, err := g.generate(ctx, g.cfg.ChatModel, contents, config)
	if err != nil {
		return "", err
	}
	reply := responseText(resp)
	if reply != "" {
		conv.record(text, reply)
	}
	return reply, nil
}

// ExplainText implements Gateway.
func (g *GeminiClient) ExplainText(ctx context.Context, summary, language string) (string, error) {
	resp, err := g.generate(ctx, g.cfg.ChatModel, genai.Text(explainPrompt(summary, language)), nil)
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// Synthesize implements Gateway.
func (g *GeminiClient) Synthesize(ctx context.Context, text string) (string, error) {
	resp, err := g.generate(ctx, g.cfg.TTSModel, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.cfg.Voice},
			},
		},
	})
	if err != nil {
		return "", err
	}
	data := responseAudio(resp)
	if data == "" {
		return "", ErrEmptyResponse
	}
	return data, nil
}

// DailyTip implements Gateway.
func (g *GeminiClient) DailyTip(ctx context.Context) (string, error) {
	resp, err := g.generate(ctx, g.cfg.ChatModel, genai.Text(tipPrompt), nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(responseText(resp)), nil
}
