package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoSteps() *Task {
	return NewTask("change wallpaper", []TaskStep{
		{StepNumber: 1, Action: "click", Target: "Settings", Description: "Open Settings", ExpectedResult: "Settings opens"},
		{StepNumber: 2, Action: "click", Target: "Background", Description: "Pick a background", ExpectedResult: "Done"},
	})
}

func TestTask_AdvanceStopsAtLastStep(t *testing.T) {
	task := twoSteps()
	assert.False(t, task.IsLastStep())
	assert.True(t, task.Advance())
	assert.Equal(t, 1, task.CurrentStepIndex)
	assert.True(t, task.IsLastStep())
	assert.False(t, task.Advance())
	assert.Equal(t, 1, task.CurrentStepIndex)

	task.Reset()
	assert.Equal(t, 0, task.CurrentStepIndex)
}

func TestTask_NoSteps(t *testing.T) {
	task := NewTask("x", nil)
	assert.False(t, task.HasSteps())
	assert.Nil(t, task.CurrentStep())
	assert.True(t, task.IsLastStep())
	assert.False(t, task.Advance())
	assert.Empty(t, task.StepAnnouncement())
	assert.Empty(t, task.StepContext())

	var nilTask *Task
	assert.False(t, nilTask.HasSteps())
	assert.Nil(t, nilTask.Clone())
}

func TestTask_Announcements(t *testing.T) {
	task := twoSteps()
	assert.Equal(t, "Step 1 of 2: Open Settings", task.StepAnnouncement())

	ctx := task.StepContext()
	assert.Contains(t, ctx, "Current task step (1 of 2):")
	assert.Contains(t, ctx, "Target: Settings")
	assert.Contains(t, ctx, "Expected result: Settings opens")
}

func TestTask_CloneIsDeep(t *testing.T) {
	task := twoSteps()
	clone := task.Clone()
	require.NotNil(t, clone)

	clone.Steps[0].Description = "changed"
	clone.CurrentStepIndex = 1
	assert.Equal(t, "Open Settings", task.Steps[0].Description)
	assert.Equal(t, 0, task.CurrentStepIndex)
}

func TestNormalizeSteps(t *testing.T) {
	steps := NormalizeSteps([]TaskStep{
		{StepNumber: 7, Target: "Save"},
		{Description: "   ", Target: ""},
		{Action: "type", Description: "Type the name"},
	})
	require.Len(t, steps, 2)

	assert.Equal(t, TaskStep{
		StepNumber:     1,
		Action:         DefaultStepAction,
		Target:         "Save",
		Description:    "click the Save",
		ExpectedResult: DefaultStepExpectedResult,
	}, steps[0])
	assert.Equal(t, 2, steps[1].StepNumber)
	assert.Equal(t, "type", steps[1].Action)
	assert.Equal(t, DefaultStepTarget, steps[1].Target)
}
