package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"screen-guide/internal/application/port/output"

	"github.com/cenkalti/backoff/v5"
)

var (
	ErrNoModel     = errors.New("no language model configured")
	ErrEmptyAnswer = errors.New("model returned an empty answer")
)

// chat sends req, retrying transient failures up to tries times within ctx.
func chat(ctx context.Context, llm output.LLMPort, req output.ChatRequest, tries uint) (string, error) {
	if llm == nil {
		return "", ErrNoModel
	}
	if tries == 0 {
		tries = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	text, err := backoff.Retry(ctx, func() (string, error) {
		resp, err := llm.Chat(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		text := strings.TrimSpace(resp.Message.Content)
		if text == "" {
			return "", backoff.Permanent(ErrEmptyAnswer)
		}
		return text, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return text, nil
}
