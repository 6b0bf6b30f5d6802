package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-home/internal/application"
	"voice-home/internal/infra"
)

const DefaultModel = "gemini-1.5-flash"

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	retry      infra.RetryConfig
}

func NewClient(apiKey, model string) *Client {
	return NewClientWithURL(apiKey, model, "https://generativelanguage.googleapis.com/v1beta")
}

func NewClientWithURL(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		retry:      infra.DefaultRetryConfig(),
	}
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *Client) Name() string {
	return "gemini/" + c.model
}

// Generate sends the whole prompt as a single text part.
func (c *Client) Generate(ctx context.Context, prompt application.Prompt) (string, error) {
	reqBody := request{
		Contents: []content{
			{Parts: []part{{Text: composePrompt(prompt)}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.8,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 4096,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return infra.StatusError("gemini", resp.StatusCode, respBody)
		}

		if err = json.Unmarshal(respBody, &result); err != nil {
			return infra.Permanent(fmt.Errorf("decoding response: %w", err))
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	if result.Error != nil {
		return "", fmt.Errorf("gemini error: %s", result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from gemini")
	}

	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

func composePrompt(p application.Prompt) string {
	var b strings.Builder
	b.WriteString(p.Instruction)
	if len(p.History) > 0 {
		b.WriteString("\n\nRecent conversation history:\n")
		for _, t := range p.History {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
		}
	}
	b.WriteString("\n\nCurrent user message: ")
	b.WriteString(p.Message)
	return b.String()
}
