package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var _ output.LLMPort = (*GeminiAdapter)(nil)

var ErrNoUserMessage = errors.New("conversation has no trailing user message")

type Config struct {
	APIKey string
	Model  string
	Logger output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return Config{APIKey: apiKey, Model: model}
}

type GeminiAdapter struct {
	client *genai.Client
	model  string
	logger output.LoggerPort
}

func NewGeminiAdapter(ctx context.Context, cfg Config) (*GeminiAdapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiAdapter{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
		logger: cfg.Logger,
	}, nil
}

func (a *GeminiAdapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	system, history, last, err := splitMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	m := a.client.GenerativeModel(a.model)
	m.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := m.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini: empty response")
	}
	if a.logger != nil {
		a.logger.Debug("Gemini completion", "model", a.model, "chars", len(text))
	}

	return &output.ChatResponse{
		Message: entity.Message{Role: entity.RoleAssistant, Content: text},
	}, nil
}

func (a *GeminiAdapter) Close() error {
	return a.client.Close()
}

// splitMessages maps a chat transcript onto Gemini's shape: system messages
// become the system instruction, the final user message is sent, and the
// rest is history.
func splitMessages(msgs []entity.Message) (system string, history []*genai.Content, last string, err error) {
	var sys []string
	var rest []entity.Message
	for _, m := range msgs {
		if m.Role == entity.RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m)
	}

	if len(rest) == 0 || rest[len(rest)-1].Role != entity.RoleUser {
		return "", nil, "", ErrNoUserMessage
	}

	for _, m := range rest[:len(rest)-1] {
		role := "user"
		if m.Role == entity.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return strings.Join(sys, "\n\n"), history, rest[len(rest)-1].Content, nil
}

func firstText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
