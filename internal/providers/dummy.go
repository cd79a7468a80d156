package providers

import (
	"context"
	"fmt"
)

// Dummy is a deterministic offline provider. It echoes a short
// acknowledgement of the last user message, which is enough for local
// development and tests without burning API credits.
type Dummy struct{}

func NewDummy() *Dummy { return &Dummy{} }

func (d *Dummy) Name() string         { return "dummy" }
func (d *Dummy) DefaultModel() string { return "dummy-v1" }

func (d *Dummy) GenerateResponse(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			last = messages[i].Content
			break
		}
	}
	promptChars := 0
	for _, m := range messages {
		promptChars += len(m.Content)
	}
	text := fmt.Sprintf("Echo: %s", last)
	return &Response{
		Text:             text,
		Provider:         d.Name(),
		Model:            d.DefaultModel(),
		PromptTokens:     (promptChars + 3) / 4,
		CompletionTokens: (len(text) + 3) / 4,
	}, nil
}
