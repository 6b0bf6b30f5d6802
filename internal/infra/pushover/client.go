package pushover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-home/internal/infra"
)

const defaultURL = "https://api.pushover.net/1/messages.json"

// Client sends reminder alerts to a phone through Pushover.
type Client struct {
	token      string
	userKey    string
	title      string
	endpoint   string
	httpClient *http.Client
}

func NewClient(token, userKey, title string) *Client {
	return NewClientWithURL(token, userKey, title, defaultURL)
}

func NewClientWithURL(token, userKey, title, endpoint string) *Client {
	if title == "" {
		title = "Reminder"
	}
	return &Client{
		token:      token,
		userKey:    userKey,
		title:      title,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", c.title)

	return infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			c.endpoint,
			strings.NewReader(data.Encode()),
		)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return infra.StatusError("pushover", resp.StatusCode, body)
		}

		return nil
	})
}
