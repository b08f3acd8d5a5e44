package input

import (
	"context"

	"screen-guide/internal/domain/entity"
)

type GuidanceController interface {
	StartGuidance(description string) error
	Pause() error
	Resume() error
	Stop() error
	Reset() error
	HandleClick(detectionID string) error
	RequestHelp(question string) error
	Status(ctx context.Context) (entity.SessionSnapshot, error)
}

type TaskPlanner interface {
	Plan(ctx context.Context, description string) []entity.TaskStep
}
