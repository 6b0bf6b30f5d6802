// Package tuya drives devices through the Tuya cloud so they follow the
// assistant's registry.
package tuya

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"voice-home/internal/domain"
	"voice-home/internal/infra"
)

var regionURLs = map[string]string{
	"us": "https://openapi.tuyaus.com",
	"eu": "https://openapi.tuyaeu.com",
	"cn": "https://openapi.tuyacn.com",
	"in": "https://openapi.tuyain.com",
}

type Client struct {
	clientID   string
	secret     string
	baseURL    string
	httpClient *http.Client

	mu       sync.RWMutex
	token    string
	expireAt time.Time
}

func NewClient(clientID, secret, region string) *Client {
	baseURL, ok := regionURLs[strings.ToLower(region)]
	if !ok {
		baseURL = regionURLs["us"]
	}
	return NewClientWithURL(clientID, secret, baseURL)
}

func NewClientWithURL(clientID, secret, baseURL string) *Client {
	return &Client{
		clientID:   clientID,
		secret:     secret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CloudDevice is a device as listed by the Tuya cloud.
type CloudDevice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Online   bool   `json:"online"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) Name() string { return "tuya" }

// Apply sends the data points that bring the cloud device in line with d.
func (c *Client) Apply(ctx context.Context, deviceID string, d domain.Device) error {
	body, err := json.Marshal(map[string]any{"commands": buildCommands(d)})
	if err != nil {
		return fmt.Errorf("marshaling commands: %w", err)
	}

	path := fmt.Sprintf("/v1.0/iot-03/devices/%s/commands", deviceID)
	if _, err := c.call(ctx, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("sending commands: %w", err)
	}
	return nil
}

type command struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
}

func buildCommands(d domain.Device) []command {
	switch d.Category {
	case domain.CategoryLight:
		cmds := []command{{Code: "switch_led", Value: d.On}}
		if level, ok := d.LevelValue(); ok && d.On {
			// bright_value_v2 runs 10..1000
			cmds = append(cmds, command{Code: "bright_value_v2", Value: max(10, level*10)})
		}
		return cmds
	case domain.CategoryFan:
		cmds := []command{{Code: "switch", Value: d.On}}
		if level, ok := d.LevelValue(); ok && d.On {
			cmds = append(cmds, command{Code: "fan_speed_percent", Value: level})
		}
		return cmds
	case domain.CategoryAC:
		cmds := []command{{Code: "switch", Value: d.On}}
		if level, ok := d.LevelValue(); ok && d.On {
			cmds = append(cmds, command{Code: "temp_set", Value: level})
		}
		return cmds
	default:
		return []command{{Code: "switch", Value: d.On}}
	}
}

// Devices lists the devices linked to the cloud project.
func (c *Client) Devices(ctx context.Context) ([]CloudDevice, error) {
	raw, err := c.call(ctx, http.MethodGet, "/v1.0/iot-01/associated-users/devices", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching devices: %w", err)
	}

	var result struct {
		Devices []CloudDevice `json:"devices"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parsing devices: %w", err)
	}
	return result.Devices, nil
}

// call performs a signed request and unwraps the result envelope.
func (c *Client) call(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	data, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("tuya error: %s", resp.Msg)
	}
	return resp.Result, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	var respBody []byte
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())

		var bodyReader io.Reader
		if body != nil {
			bodyReader = strings.NewReader(string(body))
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("client_id", c.clientID)
		req.Header.Set("access_token", token)
		req.Header.Set("sign", c.calcSign(timestamp, token, method, path, body))
		req.Header.Set("t", timestamp)
		req.Header.Set("sign_method", "HMAC-SHA256")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return infra.StatusError("tuya", resp.StatusCode, respBody)
		}
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}

func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.RLock()
	if c.token != "" && time.Now().Add(5*time.Minute).Before(c.expireAt) {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(5*time.Minute).Before(c.expireAt) {
		return nil
	}

	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())
	path := "/v1.0/token?grant_type=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("client_id", c.clientID)
	req.Header.Set("sign", c.calcSign(timestamp, "", http.MethodGet, path, nil))
	req.Header.Set("t", timestamp)
	req.Header.Set("sign_method", "HMAC-SHA256")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading token response: %w", err)
	}

	var tokenResp struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
		Result  struct {
			AccessToken string `json:"access_token"`
			ExpireTime  int64  `json:"expire_time"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return fmt.Errorf("parsing token response: %w", err)
	}
	if !tokenResp.Success {
		return fmt.Errorf("token error: %s", tokenResp.Msg)
	}

	c.token = tokenResp.Result.AccessToken
	c.expireAt = time.Now().Add(time.Duration(tokenResp.Result.ExpireTime) * time.Second)
	return nil
}

func (c *Client) calcSign(timestamp, token, method, path string, body []byte) string {
	str := c.clientID + token + timestamp + stringToSign(method, path, body)
	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write([]byte(str))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

func stringToSign(method, path string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	return method + "\n" + hex.EncodeToString(bodyHash[:]) + "\n\n" + path
}
