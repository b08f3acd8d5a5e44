package output

import (
	"context"

	"screen-guide/internal/domain/entity"
)

// MessageSink displays chat messages to the user.
type MessageSink interface {
	ShowMessage(role entity.MessageRole, text string)
}

type UserInteractionPort interface {
	MessageSink

	AskQuestion(ctx context.Context, question string) (string, error)
}
