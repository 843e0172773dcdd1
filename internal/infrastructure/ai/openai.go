package ai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

type completer struct {
	client  *openai.Client
	model   domain.ModelDefinition
	retries int
	delay   time.Duration
	logger  ports.Logger
}

// Complete opens a completion stream. Opening is retried on transient
// failures; a stream that fails midway is not.
func (c *completer) Complete(ctx context.Context, messages []domain.Message) (ports.CompletionStream, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model.ModelID,
		Messages:  toChatMessages(messages),
		MaxTokens: c.model.MaxTokens,
		Stream:    true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("completion failed, retrying", map[string]interface{}{
				"model":   c.model.Name,
				"attempt": attempt,
				"error":   lastErr.Error(),
			})
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.delay):
			}
		}
		stream, err := c.client.CreateChatCompletionStream(ctx, req)
		if err == nil {
			return &chatStream{stream: stream}, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, fmt.Errorf("%s completion: %w", c.model.Name, lastErr)
}

func toChatMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case domain.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case domain.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// chatStream yields content deltas and returns io.EOF at the end.
type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}

type embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed: empty response from %s", e.model)
	}
	return resp.Data[0].Embedding, nil
}

var (
	_ ports.Completer = (*completer)(nil)
	_ ports.Embedder  = (*embedder)(nil)
)
