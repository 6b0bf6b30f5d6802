package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voice-home/internal/application"
	"voice-home/internal/domain"
)

const DefaultChatModel = "gpt-4o-mini"

// ChatClient answers prompts through the Chat Completions API.
type ChatClient struct {
	client sdk.Client
	model  string
}

func NewChatClient(apiKey, model string) *ChatClient {
	return NewChatClientWithURL(apiKey, model, "")
}

func NewChatClientWithURL(apiKey, model, baseURL string) *ChatClient {
	if model == "" {
		model = DefaultChatModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		option.WithMaxRetries(2),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &ChatClient{
		client: sdk.NewClient(opts...),
		model:  model,
	}
}

func (c *ChatClient) Name() string {
	return "openai/" + c.model
}

func (c *ChatClient) Generate(ctx context.Context, prompt application.Prompt) (string, error) {
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(prompt.History)+2)
	if prompt.Instruction != "" {
		messages = append(messages, sdk.SystemMessage(prompt.Instruction))
	}
	for _, t := range prompt.History {
		if t.Role == domain.RoleAssistant {
			messages = append(messages, sdk.AssistantMessage(t.Content))
		} else {
			messages = append(messages, sdk.UserMessage(t.Content))
		}
	}
	messages = append(messages, sdk.UserMessage(prompt.Message))

	resp, err := c.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Messages:            messages,
		Model:               sdk.ChatModel(c.model),
		Temperature:         sdk.Float(0.8),
		MaxCompletionTokens: sdk.Int(4096),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty message content")
	}
	return content, nil
}
