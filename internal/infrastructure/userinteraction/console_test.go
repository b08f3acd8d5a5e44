package userinteraction

import (
	"bytes"
	"context"
	"image"
	"io"
	"strings"
	"testing"
	"time"

	"screen-guide/internal/domain/entity"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func sampleSet() entity.DetectionSet {
	return entity.DetectionSet{
		{ID: "detection_1", Label: "Save", Box: image.Rect(10, 20, 60, 40), Confidence: 0.92, Kind: entity.KindButton},
		{ID: "detection_2", Label: "Search", Box: image.Rect(100, 20, 300, 40), Confidence: 0.6, Kind: entity.KindTextField},
	}
}

func TestConsole_ShowAndHide(t *testing.T) {
	var out bytes.Buffer
	u := NewConsoleUserInteraction(strings.NewReader(""), &out)

	require.NoError(t, u.Show(sampleSet(), "Click the Save button"))
	text := out.String()
	assert.Contains(t, text, "2 highlighted")
	assert.Contains(t, text, "[1] Save  button 92% at (10,20)-(60,40)")
	assert.Contains(t, text, "[2] Search  text_field 60%")
	assert.Contains(t, text, "👉 Click the Save button")

	id, ok := u.IDAt(2)
	require.True(t, ok)
	assert.Equal(t, "detection_2", id)

	require.NoError(t, u.Hide("detection_1"))
	id, ok = u.IDAt(1)
	require.True(t, ok)
	assert.Equal(t, "detection_2", id)
	assert.Contains(t, out.String(), "✓ Save")

	require.NoError(t, u.HideAll())
	_, ok = u.IDAt(1)
	assert.False(t, ok)
}

func TestConsole_ShowDoesNotAliasInput(t *testing.T) {
	u := NewConsoleUserInteraction(strings.NewReader(""), io.Discard)
	set := sampleSet()
	require.NoError(t, u.Show(set, ""))
	require.NoError(t, u.Hide("detection_1"))
	assert.Equal(t, "detection_1", set[0].ID)
}

func TestConsole_Messages(t *testing.T) {
	var out bytes.Buffer
	u := NewConsoleUserInteraction(strings.NewReader(""), &out)

	u.ShowMessage(entity.RoleAssistant, "Step 1 of 2: Open Settings")
	u.ShowMessage(entity.RoleUser, "ok")
	u.ShowMessage(entity.RoleAssistant, "")
	require.NoError(t, u.ShowNotice("Retrying shortly..."))

	text := out.String()
	assert.Contains(t, text, "Assistant: Step 1 of 2: Open Settings")
	assert.Contains(t, text, "You: ok")
	assert.Contains(t, text, "⏳ Retrying shortly...")
}

func TestConsole_AskQuestion(t *testing.T) {
	var out bytes.Buffer
	u := NewConsoleUserInteraction(strings.NewReader("  upload my resume \nnext\n"), &out)

	answer, err := u.AskQuestion(context.Background(), "What do you want to do?")
	require.NoError(t, err)
	assert.Equal(t, "upload my resume", answer)
	assert.Contains(t, out.String(), "What do you want to do?")

	line, err := u.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "next", line)

	_, err = u.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestConsole_ReadLineHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	u := NewConsoleUserInteraction(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := u.ReadLine(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConsole_ShowStatus(t *testing.T) {
	var out bytes.Buffer
	u := NewConsoleUserInteraction(strings.NewReader(""), &out)

	step := entity.TaskStep{StepNumber: 2, Description: "Press Save"}
	u.ShowStatus(entity.SessionSnapshot{
		State:             entity.SessionActive,
		TaskDescription:   "save the file",
		StepIndex:         1,
		StepCount:         3,
		CurrentStep:       &step,
		DetectionInterval: 4 * time.Second,
	})

	text := out.String()
	assert.Contains(t, text, "Status: active")
	assert.Contains(t, text, "Step 2 of 3: Press Save")
	assert.Contains(t, text, "interval 4s")
}

func TestConsole_OnSessionEvent(t *testing.T) {
	var out bytes.Buffer
	u := NewConsoleUserInteraction(strings.NewReader(""), &out)

	task := entity.NewTask("save", []entity.TaskStep{{Description: "a"}, {Description: "b"}})
	task.CurrentStepIndex = 1

	u.OnSessionEvent(entity.SessionEvent{Type: entity.EventStarted})
	u.OnSessionEvent(entity.SessionEvent{Type: entity.EventStepAdvanced, Task: task})
	u.OnSessionEvent(entity.SessionEvent{Type: entity.EventCompleted})

	text := out.String()
	assert.Contains(t, text, "• session started")
	assert.Contains(t, text, "» Step 2 of 2")
	assert.Contains(t, text, "✔ Guidance finished")
}
