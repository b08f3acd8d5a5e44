package output

import (
	"context"

	"screen-guide/internal/domain/entity"
)

// AssistantPort is the language collaborator of the guidance loop. Task
// arguments are read-only.
type AssistantPort interface {
	RequestPlan(ctx context.Context, description string) []entity.TaskStep
	RequestStepGuidance(ctx context.Context, summary string, task *entity.Task) (string, error)
	NotifyUserClicked(ctx context.Context, task *entity.Task, clicked entity.Detection)
	RequestNextGuidance(ctx context.Context, task *entity.Task, clicked entity.Detection) (string, error)
	RequestHelp(ctx context.Context, task *entity.Task, question string) string
	Announce(text string)
}
