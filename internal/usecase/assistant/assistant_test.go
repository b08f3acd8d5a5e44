package assistant

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"screen-guide/internal/domain/entity"
	"screen-guide/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssistant(t *testing.T, llm *fakeLLM, sink *fakeSink) *Assistant {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxTries = 2
	a, err := New(cfg, llm, &fakePlanner{steps: entity.NormalizeSteps([]entity.TaskStep{{Description: "Open Settings"}})}, sink, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func sampleTask() *entity.Task {
	return entity.NewTask("change the wallpaper", entity.NormalizeSteps([]entity.TaskStep{
		{Description: "Open Settings"},
		{Description: "Choose Personalization"},
	}))
}

func TestAssistant_RequestPlanDelegates(t *testing.T) {
	a := newAssistant(t, &fakeLLM{}, nil)
	steps := a.RequestPlan(context.Background(), "change the wallpaper")
	require.Len(t, steps, 1)
	assert.Equal(t, "Open Settings", steps[0].Description)
}

func TestAssistant_RequestStepGuidance(t *testing.T) {
	llm := &fakeLLM{replies: []string{"  Click the highlighted box around Settings.  "}}
	a := newAssistant(t, llm, nil)
	task := sampleTask()

	text, err := a.RequestStepGuidance(context.Background(), "1. Settings - Click Settings", task)
	require.NoError(t, err)
	assert.Equal(t, "Click the highlighted box around Settings.", text)

	require.Len(t, llm.got, 1)
	req := llm.got[0]
	assert.Equal(t, 200, req.MaxTokens)
	assert.Equal(t, entity.RoleSystem, req.Messages[0].Role)
	last := req.Messages[len(req.Messages)-1].Content
	assert.Contains(t, last, "1. Settings - Click Settings")
	assert.Contains(t, last, "Current task step (1 of 2)")

	// same summary and step is served from the cache
	again, err := a.RequestStepGuidance(context.Background(), "1. Settings - Click Settings", task)
	require.NoError(t, err)
	assert.Equal(t, text, again)
	assert.Len(t, llm.got, 1)

	task.Advance()
	_, err = a.RequestStepGuidance(context.Background(), "1. Settings - Click Settings", task)
	require.NoError(t, err)
	assert.Len(t, llm.got, 2)
	assert.Len(t, llm.got[1].Messages, 4, "system, previous exchange, new prompt")
}

func TestAssistant_RetriesTransientErrors(t *testing.T) {
	llm := &fakeLLM{
		errs:    []error{errors.New("502 bad gateway")},
		replies: []string{"", "Click OK."},
	}
	a := newAssistant(t, llm, nil)

	text, err := a.RequestStepGuidance(context.Background(), "1. OK - Click OK", nil)
	require.NoError(t, err)
	assert.Equal(t, "Click OK.", text)
	assert.Len(t, llm.got, 2)
}

func TestAssistant_GivesUpAfterMaxTries(t *testing.T) {
	fail := errors.New("timeout")
	llm := &fakeLLM{errs: []error{fail, fail, fail}}
	a := newAssistant(t, llm, nil)

	_, err := a.RequestStepGuidance(context.Background(), "summary", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, fail)
	assert.Len(t, llm.got, 2)
}

func TestAssistant_NoModel(t *testing.T) {
	a, err := New(DefaultConfig(), nil, &fakePlanner{}, nil, logger.NewNop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.RequestStepGuidance(context.Background(), "summary", nil)
	assert.ErrorIs(t, err, ErrNoModel)
	assert.Equal(t, HelpFallback, a.RequestHelp(context.Background(), nil, "what now?"))
}

func TestAssistant_ClickAndNextGuidance(t *testing.T) {
	llm := &fakeLLM{replies: []string{"Choose Personalization in the sidebar."}}
	a := newAssistant(t, llm, nil)
	task := sampleTask()
	clicked := entity.Detection{ID: "detection_1", Label: "Settings", Box: image.Rect(0, 0, 10, 10), Confidence: 0.9}

	a.NotifyUserClicked(context.Background(), task, clicked)
	history := a.History()
	require.Len(t, history, 1)
	assert.Equal(t, "User clicked on: Settings", history[0].Content)

	text, err := a.RequestNextGuidance(context.Background(), task, clicked)
	require.NoError(t, err)
	assert.Equal(t, "Great! Choose Personalization in the sidebar.", text)

	req := llm.got[0]
	assert.Equal(t, 150, req.MaxTokens)
	assert.Equal(t, "User clicked on: Settings", req.Messages[1].Content)
	assert.Contains(t, req.Messages[2].Content, "I just clicked on Settings.")
}

func TestAssistant_RequestHelp(t *testing.T) {
	llm := &fakeLLM{replies: []string{"The Settings icon is the gear in the Start menu."}}
	a := newAssistant(t, llm, nil)

	answer := a.RequestHelp(context.Background(), sampleTask(), "where is settings?")
	assert.Equal(t, "The Settings icon is the gear in the Start menu.", answer)
	require.Len(t, llm.got[0].Messages, 2)
	assert.Contains(t, llm.got[0].Messages[1].Content, "My question: where is settings?")
	assert.Empty(t, a.History())
}

func TestAssistant_Announce(t *testing.T) {
	sink := &fakeSink{}
	a := newAssistant(t, &fakeLLM{}, sink)

	a.Announce("Step 1 of 2: Open Settings")
	a.Announce("")

	require.Len(t, sink.messages, 1)
	assert.Equal(t, entity.RoleAssistant, sink.messages[0].role)
	assert.Equal(t, "Step 1 of 2: Open Settings", sink.messages[0].text)
}

func TestAssistant_HistoryIsBounded(t *testing.T) {
	a := newAssistant(t, &fakeLLM{}, nil)
	for i := 0; i < maxHistory+5; i++ {
		a.NotifyUserClicked(context.Background(), nil, entity.Detection{Label: "x"})
	}
	assert.Len(t, a.History(), maxHistory)
}

func TestChat_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	llm := &fakeLLM{errs: []error{ctx.Err(), ctx.Err()}}
	_, err := chat(ctx, llm, outputRequest(), 5)
	require.Error(t, err)
	assert.LessOrEqual(t, len(llm.got), 1)
}
