package infrastructure

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const salesSystemPrompt = `Eres un asistente de ventas por WhatsApp. Responde en español, de forma breve y cordial. Si el cliente pide precios o una cotización, indica que un asesor le enviará la cotización en breve.`

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIResponder answers inbound messages with a chat completion.
type OpenAIResponder struct {
	client chatCompleter
	model  string
}

func NewOpenAIResponder(apiKey, model string) *OpenAIResponder {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIResponder{client: openai.NewClient(apiKey), model: model}
}

func (r *OpenAIResponder) Respond(ctx context.Context, _ string, content string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: salesSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("openai returned an empty answer")
	}
	return answer, nil
}
