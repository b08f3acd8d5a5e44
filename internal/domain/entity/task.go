package entity

import (
	"fmt"
	"strings"
)

const (
	DefaultStepAction         = "click"
	DefaultStepTarget         = "UI element"
	DefaultStepExpectedResult = "Continue to next step"
)

type TaskStep struct {
	StepNumber     int    `json:"step_number"`
	Action         string `json:"action"`
	Target         string `json:"target"`
	Description    string `json:"description"`
	ExpectedResult string `json:"expected_result"`
}

// Task is the user's goal and the plan produced for it.
// CurrentStepIndex stays in [0, len(Steps)-1] whenever Steps is non-empty.
type Task struct {
	Description      string
	Steps            []TaskStep
	CurrentStepIndex int
}

func NewTask(description string, steps []TaskStep) *Task {
	return &Task{
		Description: description,
		Steps:       steps,
	}
}

func (t *Task) HasSteps() bool {
	return t != nil && len(t.Steps) > 0
}

func (t *Task) CurrentStep() *TaskStep {
	if !t.HasSteps() || t.CurrentStepIndex < 0 || t.CurrentStepIndex >= len(t.Steps) {
		return nil
	}
	return &t.Steps[t.CurrentStepIndex]
}

func (t *Task) IsLastStep() bool {
	return !t.HasSteps() || t.CurrentStepIndex >= len(t.Steps)-1
}

// Advance moves to the next step. It reports false and leaves the index
// unchanged when the current step is already the last one.
func (t *Task) Advance() bool {
	if t.IsLastStep() {
		return false
	}
	t.CurrentStepIndex++
	return true
}

func (t *Task) Reset() {
	t.CurrentStepIndex = 0
}

// StepAnnouncement is the user-facing line for the current step.
func (t *Task) StepAnnouncement() string {
	step := t.CurrentStep()
	if step == nil {
		return ""
	}
	return fmt.Sprintf("Step %d of %d: %s", t.CurrentStepIndex+1, len(t.Steps), step.Description)
}

// StepContext describes the current step for a guidance prompt.
func (t *Task) StepContext() string {
	step := t.CurrentStep()
	if step == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Current task step (%d of %d):\n", t.CurrentStepIndex+1, len(t.Steps))
	fmt.Fprintf(&b, "Action: %s\n", step.Action)
	fmt.Fprintf(&b, "Target: %s\n", step.Target)
	fmt.Fprintf(&b, "Description: %s\n", step.Description)
	fmt.Fprintf(&b, "Expected result: %s\n", step.ExpectedResult)
	return b.String()
}

// Clone returns a deep copy safe to hand across goroutines.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	steps := make([]TaskStep, len(t.Steps))
	copy(steps, t.Steps)
	return &Task{
		Description:      t.Description,
		Steps:            steps,
		CurrentStepIndex: t.CurrentStepIndex,
	}
}

// NormalizeSteps renumbers steps from 1 and fills empty fields with defaults.
func NormalizeSteps(steps []TaskStep) []TaskStep {
	out := make([]TaskStep, 0, len(steps))
	for _, s := range steps {
		if strings.TrimSpace(s.Description) == "" && strings.TrimSpace(s.Target) == "" {
			continue
		}
		if strings.TrimSpace(s.Action) == "" {
			s.Action = DefaultStepAction
		}
		if strings.TrimSpace(s.Target) == "" {
			s.Target = DefaultStepTarget
		}
		if strings.TrimSpace(s.Description) == "" {
			s.Description = fmt.Sprintf("%s the %s", s.Action, s.Target)
		}
		if strings.TrimSpace(s.ExpectedResult) == "" {
			s.ExpectedResult = DefaultStepExpectedResult
		}
		s.StepNumber = len(out) + 1
		out = append(out, s)
	}
	return out
}
