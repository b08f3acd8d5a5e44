package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"screen-guide/internal/di"
	"screen-guide/internal/domain/entity"
	"screen-guide/internal/infrastructure/eventloop"
)

const usage = `Commands:
  <n>             click highlighted element n
  click <n>       same as above
  pause, resume   pause or resume detection
  stop            finish the current task
  reset           drop the task and go idle
  start <task>    start guidance for a new task
  help <question> ask for help with the current step
  status          show the session state
  quit            exit`

type command struct {
	name string
	arg  string
}

func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	arg = strings.TrimSpace(arg)
	if _, err := strconv.Atoi(name); err == nil && arg == "" {
		return command{name: "click", arg: name}
	}
	if name == "exit" || name == "q" {
		name = "quit"
	}
	return command{name: name, arg: arg}
}

type session struct {
	c *di.Container
}

func newSession(c *di.Container) *session {
	return &session{c: c}
}

// run collects a task through the conversation when none was given, starts
// guidance and then serves console commands until quit or EOF.
func (s *session) run(ctx context.Context, task string) error {
	if task == "" {
		var err error
		task, err = s.converse(ctx)
		if err != nil {
			return ignoreEnd(err)
		}
	}
	if err := s.c.Guidance.StartGuidance(task); err != nil {
		return err
	}

	for {
		line, err := s.c.Console.ReadLine(ctx)
		if err != nil {
			return ignoreEnd(err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		quit, err := s.dispatch(ctx, parseCommand(line))
		if err != nil {
			if errors.Is(err, eventloop.ErrStopped) {
				return nil
			}
			s.c.Console.ShowMessage(entity.RoleSystem, err.Error())
		}
		if quit {
			_ = s.c.Guidance.Stop()
			return nil
		}
	}
}

func (s *session) converse(ctx context.Context) (string, error) {
	s.c.Conversation.Greet()
	for {
		line, err := s.c.Console.AskQuestion(ctx, "")
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		reply, err := s.c.Conversation.Send(ctx, line)
		if err != nil {
			s.c.Logger.Warn("Conversation turn failed", "error", err)
			s.c.Console.ShowMessage(entity.RoleSystem, "The assistant is unavailable right now, please try again.")
			continue
		}
		if reply.Ready {
			return reply.Task, nil
		}
	}
}

func (s *session) dispatch(ctx context.Context, cmd command) (bool, error) {
	g := s.c.Guidance
	switch cmd.name {
	case "click":
		n, err := strconv.Atoi(cmd.arg)
		if err != nil {
			return false, fmt.Errorf("click needs a number, got %q", cmd.arg)
		}
		id, ok := s.c.Console.IDAt(n)
		if !ok {
			return false, fmt.Errorf("no highlighted element %d", n)
		}
		return false, g.HandleClick(id)
	case "pause":
		return false, g.Pause()
	case "resume":
		return false, g.Resume()
	case "stop":
		return false, g.Stop()
	case "reset":
		return false, g.Reset()
	case "start":
		return false, g.StartGuidance(cmd.arg)
	case "help":
		if cmd.arg == "" {
			cmd.arg = "What should I do now?"
		}
		return false, g.RequestHelp(cmd.arg)
	case "status":
		snap, err := g.Status(ctx)
		if err != nil {
			return false, err
		}
		s.c.Console.ShowStatus(snap)
		return false, nil
	case "quit":
		return true, nil
	default:
		s.c.Console.ShowMessage(entity.RoleSystem, usage)
		return false, nil
	}
}

func ignoreEnd(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
