package prompts_test

import (
	"strings"
	"testing"

	"screen-guide/internal/infrastructure/prompts"
)

func TestEmbeddedPrompts(t *testing.T) {
	embedded := map[string]string{
		"conversation": prompts.ConversationPrompt,
		"guidance":     prompts.GuidancePrompt,
		"planning":     prompts.PlanningPrompt,
		"step_request": prompts.StepRequestTemplate,
		"next_step":    prompts.NextStepTemplate,
		"help":         prompts.HelpTemplate,
	}
	for name, text := range embedded {
		if len(strings.TrimSpace(text)) < 40 {
			t.Errorf("%s prompt seems too short", name)
		}
	}

	if !strings.Contains(prompts.ConversationPrompt, "[READY]") {
		t.Error("conversation prompt must explain the readiness marker")
	}
	if !strings.Contains(prompts.PlanningPrompt, "JSON array") {
		t.Error("planning prompt must ask for a JSON array")
	}
}
