package assistant

import (
	"context"
	"strings"
	"sync"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
	"screen-guide/internal/infrastructure/prompts"
)

const (
	DefaultReadyMarker = "[READY]"
	Greeting           = "Hi! I can walk you through computer tasks step by step.\n\nWhat would you like to do? For example: upload a document, fill out a form, or change a setting."

	minTaskLen = 20
	maxTaskLen = 200
)

// ReadinessPolicy decides when the pre-guidance conversation has enough
// information to start guidance. Evaluate returns the reply as it should be
// shown to the user.
type ReadinessPolicy interface {
	Evaluate(reply string, history []entity.Message) (display string, ready bool)
}

// MarkerPolicy is ready when the model ends its reply with Marker.
type MarkerPolicy struct {
	Marker string
}

func (p MarkerPolicy) Evaluate(reply string, _ []entity.Message) (string, bool) {
	marker := p.Marker
	if marker == "" {
		marker = DefaultReadyMarker
	}
	if !strings.Contains(reply, marker) {
		return reply, false
	}
	return strings.TrimSpace(strings.ReplaceAll(reply, marker, "")), true
}

// ExchangeCountPolicy is ready after the user has sent Exchanges messages.
type ExchangeCountPolicy struct {
	Exchanges int
}

func (p ExchangeCountPolicy) Evaluate(reply string, history []entity.Message) (string, bool) {
	n := 0
	for _, m := range history {
		if m.Role == entity.RoleUser {
			n++
		}
	}
	want := p.Exchanges
	if want <= 0 {
		want = 1
	}
	return reply, n >= want
}

type Reply struct {
	Text  string
	Ready bool
	Task  string
}

// Conversation is the chat that runs before guidance starts.
type Conversation struct {
	llm    output.LLMPort
	policy ReadinessPolicy
	sink   output.MessageSink
	logger output.LoggerPort
	tries  uint

	mu      sync.Mutex
	history []entity.Message
	ready   bool
}

func NewConversation(llm output.LLMPort, policy ReadinessPolicy, sink output.MessageSink, logger output.LoggerPort, tries uint) *Conversation {
	if policy == nil {
		policy = MarkerPolicy{}
	}
	return &Conversation{
		llm:     llm,
		policy:  policy,
		sink:    sink,
		logger:  logger.WithField("component", "conversation"),
		tries:   tries,
		history: []entity.Message{{Role: entity.RoleSystem, Content: prompts.ConversationPrompt}},
	}
}

func (c *Conversation) Greet() {
	if c.sink != nil {
		c.sink.ShowMessage(entity.RoleAssistant, Greeting)
	}
}

func (c *Conversation) Send(ctx context.Context, text string) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, entity.Message{Role: entity.RoleUser, Content: text})
	msgs := make([]entity.Message, len(c.history))
	copy(msgs, c.history)

	answer, err := chat(ctx, c.llm, output.ChatRequest{
		Messages:    msgs,
		Temperature: 0.7,
		MaxTokens:   500,
	}, c.tries)
	if err != nil {
		c.logger.Warn("Conversation reply failed", "error", err)
		return Reply{}, err
	}
	c.history = append(c.history, entity.Message{Role: entity.RoleAssistant, Content: answer})

	display, ready := c.policy.Evaluate(answer, c.history)
	if c.sink != nil {
		c.sink.ShowMessage(entity.RoleAssistant, display)
	}

	reply := Reply{Text: display}
	if ready && !c.ready {
		c.ready = true
		reply.Ready = true
		reply.Task = c.taskDescription()
		c.logger.Info("Task ready", "task", reply.Task)
	}
	return reply, nil
}

// taskDescription picks the first substantial user message.
func (c *Conversation) taskDescription() string {
	var last string
	for _, m := range c.history {
		if m.Role != entity.RoleUser {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if len(content) > minTaskLen {
			return truncate(content, maxTaskLen)
		}
		last = content
	}
	return last
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
