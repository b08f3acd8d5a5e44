package assistant

import (
	"context"
	"errors"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
)

type fakeLLM struct {
	replies []string
	errs    []error
	got     []output.ChatRequest
}

func (f *fakeLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	i := len(f.got)
	f.got = append(f.got, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.replies) {
		return &output.ChatResponse{Message: entity.Message{Role: entity.RoleAssistant, Content: f.replies[i]}}, nil
	}
	if len(f.replies) > 0 {
		return &output.ChatResponse{Message: entity.Message{Role: entity.RoleAssistant, Content: f.replies[len(f.replies)-1]}}, nil
	}
	return nil, errors.New("no reply scripted")
}

type fakePlanner struct{ steps []entity.TaskStep }

func (p *fakePlanner) Plan(ctx context.Context, description string) []entity.TaskStep {
	return p.steps
}

type sinkMessage struct {
	role entity.MessageRole
	text string
}

type fakeSink struct{ messages []sinkMessage }

func (s *fakeSink) ShowMessage(role entity.MessageRole, text string) {
	s.messages = append(s.messages, sinkMessage{role, text})
}
