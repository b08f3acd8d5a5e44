package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"screen-guide/internal/application/port/input"
	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
	"screen-guide/internal/infrastructure/prompts"

	"github.com/maypok86/otter"
)

var _ output.AssistantPort = (*Assistant)(nil)

const (
	HelpFallback = "I'm here to help! Can you tell me more specifically what you're having trouble with?"

	maxHistory      = 20
	contextMessages = 2
)

type Config struct {
	MaxTries  uint
	CacheTTL  time.Duration
	CacheSize int
}

func DefaultConfig() Config {
	return Config{
		MaxTries:  2,
		CacheTTL:  2 * time.Minute,
		CacheSize: 256,
	}
}

// Assistant produces the guidance text shown next to highlighted elements.
// It keeps a short guidance conversation so follow-up answers have context.
type Assistant struct {
	cfg     Config
	llm     output.LLMPort
	planner input.TaskPlanner
	sink    output.MessageSink
	logger  output.LoggerPort
	cache   otter.Cache[string, string]

	mu      sync.Mutex
	history []entity.Message
}

func New(cfg Config, llm output.LLMPort, planner input.TaskPlanner, sink output.MessageSink, logger output.LoggerPort) (*Assistant, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}

	cache, err := otter.MustBuilder[string, string](cfg.CacheSize).
		WithTTL(cfg.CacheTTL).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build guidance cache: %w", err)
	}

	return &Assistant{
		cfg:     cfg,
		llm:     llm,
		planner: planner,
		sink:    sink,
		logger:  logger.WithField("component", "assistant"),
		cache:   cache,
	}, nil
}

func (a *Assistant) Close() {
	a.cache.Close()
}

func (a *Assistant) RequestPlan(ctx context.Context, description string) []entity.TaskStep {
	return a.planner.Plan(ctx, description)
}

func (a *Assistant) RequestStepGuidance(ctx context.Context, summary string, task *entity.Task) (string, error) {
	key := guidanceKey(summary, task)
	if text, ok := a.cache.Get(key); ok {
		a.logger.Debug("Step guidance served from cache")
		return text, nil
	}

	prompt, err := prompts.GenerateStepRequest(prompts.StepRequestData{
		Summary:     summary,
		Task:        taskDescription(task),
		StepContext: task.StepContext(),
	})
	if err != nil {
		return "", fmt.Errorf("render step request: %w", err)
	}

	text, err := a.ask(ctx, prompt, 0.3, 200)
	if err != nil {
		return "", err
	}
	a.cache.Set(key, text)
	return text, nil
}

func (a *Assistant) NotifyUserClicked(ctx context.Context, task *entity.Task, clicked entity.Detection) {
	a.remember(entity.Message{Role: entity.RoleUser, Content: "User clicked on: " + clicked.Label})
	a.logger.Info("User clicked", "id", clicked.ID, "label", clicked.Label)
}

func (a *Assistant) RequestNextGuidance(ctx context.Context, task *entity.Task, clicked entity.Detection) (string, error) {
	prompt, err := prompts.GenerateNextStep(prompts.NextStepData{
		Clicked:     clicked.Label,
		Task:        taskDescription(task),
		StepContext: task.StepContext(),
	})
	if err != nil {
		return "", fmt.Errorf("render next step: %w", err)
	}

	text, err := a.ask(ctx, prompt, 0.3, 150)
	if err != nil {
		return "", err
	}
	return "Great! " + text, nil
}

func (a *Assistant) RequestHelp(ctx context.Context, task *entity.Task, question string) string {
	prompt, err := prompts.GenerateHelp(prompts.HelpData{
		Task:        taskDescription(task),
		StepContext: task.StepContext(),
		Question:    question,
	})
	if err != nil {
		a.logger.Error("Failed to render help prompt", "error", err)
		return HelpFallback
	}

	text, err := chat(ctx, a.llm, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: prompts.GuidancePrompt},
			{Role: entity.RoleUser, Content: prompt},
		},
		Temperature: 0.5,
		MaxTokens:   200,
	}, a.cfg.MaxTries)
	if err != nil {
		a.logger.Warn("Help request failed", "error", err)
		return HelpFallback
	}
	return text
}

func (a *Assistant) Announce(text string) {
	if text == "" {
		return
	}
	a.logger.Info("Announcement", "text", text)
	if a.sink != nil {
		a.sink.ShowMessage(entity.RoleAssistant, text)
	}
}

// History returns a copy of the guidance conversation.
func (a *Assistant) History() []entity.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]entity.Message, len(a.history))
	copy(out, a.history)
	return out
}

// ask sends prompt with the guidance system prompt and the latest exchange
// as context, and records both sides on success.
func (a *Assistant) ask(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	msgs := []entity.Message{{Role: entity.RoleSystem, Content: prompts.GuidancePrompt}}
	msgs = append(msgs, a.recent(contextMessages)...)
	msgs = append(msgs, entity.Message{Role: entity.RoleUser, Content: prompt})

	text, err := chat(ctx, a.llm, output.ChatRequest{
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, a.cfg.MaxTries)
	if err != nil {
		return "", err
	}

	a.remember(
		entity.Message{Role: entity.RoleUser, Content: prompt},
		entity.Message{Role: entity.RoleAssistant, Content: text},
	)
	return text, nil
}

func (a *Assistant) recent(n int) []entity.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.history) < n {
		n = len(a.history)
	}
	out := make([]entity.Message, n)
	copy(out, a.history[len(a.history)-n:])
	return out
}

func (a *Assistant) remember(msgs ...entity.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, msgs...)
	if over := len(a.history) - maxHistory; over > 0 {
		a.history = append([]entity.Message(nil), a.history[over:]...)
	}
}

func guidanceKey(summary string, task *entity.Task) string {
	step := -1
	if task.HasSteps() {
		step = task.CurrentStepIndex
	}
	return fmt.Sprintf("%s\x00%d\x00%s", taskDescription(task), step, summary)
}

func taskDescription(task *entity.Task) string {
	if task == nil {
		return "the current task"
	}
	return task.Description
}
