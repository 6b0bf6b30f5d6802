package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	AI            AIConfig            `yaml:"ai"`
	Gemini        GeminiConfig        `yaml:"gemini"`
	Anthropic     AnthropicConfig     `yaml:"anthropic"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Voice         VoiceConfig         `yaml:"voice"`
	Transcript    TranscriptConfig    `yaml:"transcript"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Tuya          TuyaConfig          `yaml:"tuya"`
	Pushover      PushoverConfig      `yaml:"pushover"`
	Home          HomeConfig          `yaml:"home"`
	Log           LogConfig           `yaml:"log"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AuthToken      string        `yaml:"auth_token"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
}

type AIConfig struct {
	// gemini, anthropic, openai or none
	Provider      string        `yaml:"provider"`
	Timeout       time.Duration `yaml:"timeout"`
	HistoryLimit  int           `yaml:"history_limit"`
	HistoryWindow int           `yaml:"history_window"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"`
}

type VoiceConfig struct {
	// none, file or microphone
	Source       string        `yaml:"source"`
	FileDir      string        `yaml:"file_dir"`
	PollInterval time.Duration `yaml:"poll_interval"`
	SampleRate   int           `yaml:"sample_rate"`
}

type TranscriptConfig struct {
	// sqlite or memory
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
	QoS      byte   `yaml:"qos"`
}

type HomeAssistantConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	// device id or name -> entity id
	Entities map[string]string `yaml:"entities"`
}

type TuyaConfig struct {
	Enabled  bool   `yaml:"enabled"`
	ClientID string `yaml:"client_id"`
	Secret   string `yaml:"secret"`
	Region   string `yaml:"region"`
	// device id or name -> tuya device id
	Devices map[string]string `yaml:"devices"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Title   string `yaml:"title"`
	Enabled bool   `yaml:"enabled"`
}

type HomeConfig struct {
	SeedDemo bool           `yaml:"seed_demo"`
	Devices  []DeviceConfig `yaml:"devices"`
}

type DeviceConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Room string `yaml:"room"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file, expanding ${VAR} references from the
// environment. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	cfg.Home.SeedDemo = true

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 30
	}
	if c.Server.RateWindow == 0 {
		c.Server.RateWindow = time.Minute
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "gemini"
	}
	c.AI.Provider = strings.ToLower(c.AI.Provider)
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 30 * time.Second
	}
	if c.AI.HistoryLimit == 0 {
		c.AI.HistoryLimit = 30
	}
	if c.AI.HistoryWindow == 0 {
		c.AI.HistoryWindow = 10
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-1.5-flash"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = "en"
	}
	if c.Voice.Source == "" {
		c.Voice.Source = "none"
	}
	if c.Voice.FileDir == "" {
		c.Voice.FileDir = "./audio"
	}
	if c.Voice.PollInterval == 0 {
		c.Voice.PollInterval = 500 * time.Millisecond
	}
	if c.Voice.SampleRate == 0 {
		c.Voice.SampleRate = 16000
	}
	if c.Transcript.Driver == "" {
		c.Transcript.Driver = "sqlite"
	}
	if c.Transcript.DSN == "" {
		c.Transcript.DSN = ":memory:"
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "voice-home"
	}
	if c.MQTT.Prefix == "" {
		c.MQTT.Prefix = "home"
	}
	if c.Tuya.Region == "" {
		c.Tuya.Region = "us"
	}
	if c.Pushover.Title == "" {
		c.Pushover.Title = "Reminder"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.AI.Provider {
	case "gemini", "anthropic", "openai", "none":
	default:
		errs = append(errs, fmt.Errorf("ai.provider: unknown provider %q", c.AI.Provider))
	}
	if c.AI.HistoryWindow > c.AI.HistoryLimit {
		errs = append(errs, fmt.Errorf("ai.history_window (%d) exceeds ai.history_limit (%d)", c.AI.HistoryWindow, c.AI.HistoryLimit))
	}
	switch c.Voice.Source {
	case "none", "file", "microphone":
	default:
		errs = append(errs, fmt.Errorf("voice.source: unknown source %q", c.Voice.Source))
	}
	switch c.Transcript.Driver {
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("transcript.driver: unknown driver %q", c.Transcript.Driver))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos: must be 0, 1 or 2"))
	}
	if c.HomeAssistant.Enabled && c.HomeAssistant.URL == "" {
		errs = append(errs, fmt.Errorf("homeassistant.url: required when enabled"))
	}
	if c.Tuya.Enabled && (c.Tuya.ClientID == "" || c.Tuya.Secret == "") {
		errs = append(errs, fmt.Errorf("tuya: client_id and secret are required when enabled"))
	}
	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		errs = append(errs, fmt.Errorf("pushover: token and user_key are required when enabled"))
	}
	for i, d := range c.Home.Devices {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Errorf("home.devices[%d].name: required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ChatAPIKey returns the key of the selected AI provider.
func (c *Config) ChatAPIKey() string {
	switch c.AI.Provider {
	case "gemini":
		return c.Gemini.APIKey
	case "anthropic":
		return c.Anthropic.APIKey
	case "openai":
		return c.OpenAI.APIKey
	}
	return ""
}
