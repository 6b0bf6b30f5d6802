package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-home/internal/domain"
	"voice-home/internal/infra"
)

// Client calls Home Assistant services so entities follow the registry.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

// Entity is one row of /api/states.
type Entity struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

func (c *Client) Name() string { return "homeassistant" }

// Apply sets power and, when on, the level of the entity. Lights take a
// brightness percentage, fans a speed percentage and climate entities a
// target temperature.
func (c *Client) Apply(ctx context.Context, entityID string, d domain.Device) error {
	service, data := buildServiceCall(entityID, d)
	data["entity_id"] = entityID

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	path := "/api/services/" + strings.Replace(service, ".", "/", 1)
	if _, err := c.doRequest(ctx, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("calling %s: %w", service, err)
	}
	return nil
}

func buildServiceCall(entityID string, d domain.Device) (string, map[string]any) {
	entityDomain := "switch"
	if parts := strings.SplitN(entityID, ".", 2); len(parts) == 2 {
		entityDomain = parts[0]
	}
	data := make(map[string]any)

	if !d.On {
		return entityDomain + ".turn_off", data
	}

	level, hasLevel := d.LevelValue()
	switch {
	case entityDomain == "light" && hasLevel:
		data["brightness_pct"] = level
	case entityDomain == "fan" && hasLevel:
		data["percentage"] = level
	case entityDomain == "climate" && hasLevel:
		data["temperature"] = level
		data["hvac_mode"] = "cool"
		return "climate.set_temperature", data
	}
	return entityDomain + ".turn_on", data
}

// States lists the entities known to Home Assistant.
func (c *Client) States(ctx context.Context) ([]Entity, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/states", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching states: %w", err)
	}

	var entities []Entity
	if err := json.Unmarshal(resp, &entities); err != nil {
		return nil, fmt.Errorf("parsing states: %w", err)
	}
	return entities, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var respBody []byte

	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = strings.NewReader(string(body))
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return infra.Permanent(fmt.Errorf("unauthorized: check your Home Assistant token"))
		}
		if resp.StatusCode >= 400 {
			return infra.StatusError("home assistant", resp.StatusCode, respBody)
		}
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}
