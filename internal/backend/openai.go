package backend

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

// OpenAI streams chat completions from any OpenAI-compatible API.
type OpenAI struct {
	client openai.Client
	model  string
	system string
}

func NewOpenAI(client openai.Client, model, system string) *OpenAI {
	return &OpenAI{client: client, model: model, system: system}
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (Stream, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if o.system != "" {
		msgs = append(msgs, openai.SystemMessage(o.system))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	return &chatStream{s: o.client.Chat.Completions.NewStreaming(ctx, params)}, nil
}

type chatStream struct {
	s     *ssestream.Stream[openai.ChatCompletionChunk]
	chunk string
}

func (c *chatStream) Next() bool {
	for c.s.Next() {
		cur := c.s.Current()
		if len(cur.Choices) == 0 {
			continue
		}
		c.chunk = cur.Choices[0].Delta.Content
		return true
	}
	return false
}

func (c *chatStream) Chunk() string { return c.chunk }

func (c *chatStream) Err() error {
	if err := c.s.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

func (c *chatStream) Close() error { return c.s.Close() }
