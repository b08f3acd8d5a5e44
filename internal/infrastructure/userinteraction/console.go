package userinteraction

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"

	"github.com/fatih/color"
)

var (
	_ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)
	_ output.OverlayPort         = (*ConsoleUserInteraction)(nil)
	_ output.SessionListener     = (*ConsoleUserInteraction)(nil)
)

// ConsoleUserInteraction renders highlights and chat messages in the
// terminal and reads commands from it.
type ConsoleUserInteraction struct {
	reader *bufio.Reader
	out    io.Writer

	readOnce sync.Once
	lines    chan readResult

	mu    sync.Mutex
	shown entity.DetectionSet
}

func NewConsoleUserInteraction(in io.Reader, out io.Writer) *ConsoleUserInteraction {
	return &ConsoleUserInteraction{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

func (u *ConsoleUserInteraction) AskQuestion(ctx context.Context, question string) (string, error) {
	u.mu.Lock()
	fmt.Fprintf(u.out, "\n%s\n> ", question)
	u.mu.Unlock()
	return u.ReadLine(ctx)
}

type readResult struct {
	line string
	err  error
}

// ReadLine blocks until a line is entered or ctx is done. A single reader
// goroutine owns the input so abandoned reads do not race.
func (u *ConsoleUserInteraction) ReadLine(ctx context.Context) (string, error) {
	u.readOnce.Do(func() {
		u.lines = make(chan readResult)
		go u.readLoop()
	})

	select {
	case r, ok := <-u.lines:
		if !ok {
			return "", fmt.Errorf("failed to read user input: %w", io.EOF)
		}
		if r.err != nil && (r.err != io.EOF || r.line == "") {
			return "", fmt.Errorf("failed to read user input: %w", r.err)
		}
		return strings.TrimSpace(r.line), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (u *ConsoleUserInteraction) readLoop() {
	defer close(u.lines)
	for {
		line, err := u.reader.ReadString('\n')
		u.lines <- readResult{line, err}
		if err != nil {
			return
		}
	}
}

func (u *ConsoleUserInteraction) ShowMessage(role entity.MessageRole, text string) {
	if text == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	switch role {
	case entity.RoleAssistant:
		color.New(color.FgGreen, color.Bold).Fprint(u.out, "\n🤖 Assistant: ")
		fmt.Fprintln(u.out, text)
	case entity.RoleUser:
		color.New(color.FgCyan).Fprint(u.out, "\nYou: ")
		fmt.Fprintln(u.out, text)
	default:
		color.New(color.Faint).Fprintln(u.out, text)
	}
}

func (u *ConsoleUserInteraction) Show(set entity.DetectionSet, instruction string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.shown = append(entity.DetectionSet(nil), set...)

	color.New(color.FgCyan, color.Bold).Fprintf(u.out, "\n━━━ %d highlighted ━━━\n", len(set))
	red := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)
	for i, d := range set {
		red.Fprintf(u.out, "[%d] ", i+1)
		fmt.Fprintf(u.out, "%s", d.Label)
		dim.Fprintf(u.out, "  %s %.0f%% at (%d,%d)-(%d,%d)\n",
			d.Kind, d.Confidence*100, d.Box.Min.X, d.Box.Min.Y, d.Box.Max.X, d.Box.Max.Y)
	}
	if instruction != "" {
		color.New(color.FgYellow, color.Bold).Fprint(u.out, "👉 ")
		fmt.Fprintln(u.out, instruction)
	}
	return nil
}

func (u *ConsoleUserInteraction) Hide(id string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for i, d := range u.shown {
		if d.ID == id {
			u.shown = append(u.shown[:i:i], u.shown[i+1:]...)
			color.New(color.FgGreen).Fprintf(u.out, "✓ %s\n", d.Label)
			return nil
		}
	}
	return nil
}

func (u *ConsoleUserInteraction) HideAll() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.shown = nil
	return nil
}

func (u *ConsoleUserInteraction) ShowNotice(text string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	color.New(color.FgMagenta).Fprintf(u.out, "\n⏳ %s\n", text)
	return nil
}

func (u *ConsoleUserInteraction) OnSessionEvent(ev entity.SessionEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch ev.Type {
	case entity.EventStepAdvanced:
		if ev.Task.HasSteps() {
			color.New(color.FgBlue).Fprintf(u.out, "\n» Step %d of %d\n", ev.Task.CurrentStepIndex+1, len(ev.Task.Steps))
			return
		}
	case entity.EventCompleted:
		color.New(color.FgGreen, color.Bold).Fprintln(u.out, "\n✔ Guidance finished")
		return
	}
	color.New(color.Faint).Fprintf(u.out, "\n• session %s\n", ev.Type)
}

// IDAt maps the 1-based number printed next to a highlight to its id.
func (u *ConsoleUserInteraction) IDAt(n int) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if n < 1 || n > len(u.shown) {
		return "", false
	}
	return u.shown[n-1].ID, true
}

func (u *ConsoleUserInteraction) ShowStatus(s entity.SessionSnapshot) {
	u.mu.Lock()
	defer u.mu.Unlock()

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(u.out, "\n━━━ Status: %s ━━━\n", s.State)
	if s.TaskDescription != "" {
		fmt.Fprintf(u.out, "Task: %s\n", truncate(s.TaskDescription, 120))
	}
	if s.CurrentStep != nil {
		fmt.Fprintf(u.out, "Step %d of %d: %s\n", s.StepIndex+1, s.StepCount, s.CurrentStep.Description)
	}
	color.New(color.Faint).Fprintf(u.out, "interval %s, highlighted %d, timeouts %d\n",
		s.DetectionInterval, len(s.Shown), s.Timeouts)
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
