package planner

import (
	"context"
	"strings"

	"screen-guide/internal/application/port/input"
	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
	"screen-guide/internal/infrastructure/prompts"
)

var _ input.TaskPlanner = (*Planner)(nil)

const (
	planTemperature = 0.2
	planMaxTokens   = 2000
)

type Planner struct {
	llm    output.LLMPort
	logger output.LoggerPort
}

// New creates a planner. A nil llm plans from the description alone.
func New(llm output.LLMPort, logger output.LoggerPort) *Planner {
	return &Planner{
		llm:    llm,
		logger: logger.WithField("component", "planner"),
	}
}

func (p *Planner) Plan(ctx context.Context, description string) []entity.TaskStep {
	description = strings.TrimSpace(description)

	if p.llm == nil {
		return p.fromDescription(description)
	}

	resp, err := p.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: prompts.PlanningPrompt},
			{Role: entity.RoleUser, Content: "Create a step-by-step plan for this task: " + description},
		},
		Temperature: planTemperature,
		MaxTokens:   planMaxTokens,
	})
	if err != nil {
		p.logger.Warn("Plan generation failed, using heuristic", "error", err)
		return p.fromDescription(description)
	}

	steps, method := Parse(resp.Message.Content)
	if method == MethodHeuristic || method == MethodDefault {
		p.logger.Warn("Plan response was not valid JSON", "method", method, "response", truncate(resp.Message.Content, 500))
	}
	p.logger.Info("Plan ready", "steps", len(steps), "method", method)
	return steps
}

func (p *Planner) fromDescription(description string) []entity.TaskStep {
	if steps := ParseLines(description); len(steps) > 0 {
		return steps
	}
	return DefaultPlan()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
