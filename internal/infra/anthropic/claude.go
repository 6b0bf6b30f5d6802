package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"voice-home/internal/application"
	"voice-home/internal/domain"
	"voice-home/internal/infra"
)

const DefaultModel = "claude-sonnet-4-20250514"

type ClaudeClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
}

func NewClaudeClient(apiKey, model string) *ClaudeClient {
	return NewClaudeClientWithURL(apiKey, model, "https://api.anthropic.com/v1")
}

func NewClaudeClientWithURL(apiKey, model, baseURL string) *ClaudeClient {
	if model == "" {
		model = DefaultModel
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		maxTokens:  1024,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *ClaudeClient) Name() string {
	return "anthropic/" + c.model
}

func (c *ClaudeClient) Generate(ctx context.Context, prompt application.Prompt) (string, error) {
	reqBody := request{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    prompt.Instruction,
		Messages:  toMessages(prompt),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			var body bytes.Buffer
			body.ReadFrom(resp.Body)
			return infra.StatusError("claude", resp.StatusCode, body.Bytes())
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return infra.Permanent(fmt.Errorf("decoding response: %w", err))
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	var b strings.Builder
	for _, block := range result.Content {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("empty response from claude")
	}
	return strings.TrimSpace(b.String()), nil
}

// toMessages folds history into strictly alternating turns that start with
// the user, as the Messages API requires.
func toMessages(p application.Prompt) []message {
	turns := append(append([]domain.Turn(nil), p.History...), domain.Turn{Role: domain.RoleUser, Content: p.Message})

	var out []message
	for _, t := range turns {
		role := "user"
		if t.Role == domain.RoleAssistant {
			role = "assistant"
		}
		if len(out) == 0 && role != "user" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + t.Content
			continue
		}
		out = append(out, message{Role: role, Content: t.Content})
	}
	return out
}
