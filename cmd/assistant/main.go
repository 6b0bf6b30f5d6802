package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	"voice-home/config"
	"voice-home/internal/application"
	"voice-home/internal/domain"
	"voice-home/internal/infra/anthropic"
	"voice-home/internal/infra/audio"
	"voice-home/internal/infra/gemini"
	"voice-home/internal/infra/homeassistant"
	"voice-home/internal/infra/httpapi"
	"voice-home/internal/infra/mqtt"
	"voice-home/internal/infra/openai"
	"voice-home/internal/infra/pushover"
	"voice-home/internal/infra/sqlite"
	"voice-home/internal/infra/tuya"
)

func main() {
	configPath := cli.StringP("config", "c", "config.yaml", "path to config file")
	envFile := cli.StringP("env", "e", ".env", "env file loaded before the config")
	cli.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("loading env file", "path", *envFile, "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("assistant stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	newID := uuid.NewString
	app, err := newCore(cfg, newID, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	events, devices, reminders := app.events, app.devices, app.reminders

	var notifier application.Notifier = &application.NoopNotifier{}
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, cfg.Pushover.Title)
	}

	var stt application.SpeechToText
	if cfg.OpenAI.APIKey != "" {
		stt = openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.Language)
	}

	chat := createChatModel(cfg, logger)
	audioSource := createAudioSource(cfg.Voice, logger)

	assistant := application.NewAssistant(application.AssistantDeps{
		Audio:        audioSource,
		STT:          stt,
		Chat:         chat,
		Interpreter:  app.interpreter,
		Reminders:    reminders,
		Transcript:   app.transcript,
		Conversation: application.NewConversation(cfg.AI.HistoryLimit, cfg.AI.HistoryWindow),
		Notifier:     notifier,
		Events:       events,
		Logger:       logger,
		Now:          time.Now,
		NewID:        newID,
		ChatTimeout:  cfg.AI.Timeout,
	})

	server := httpapi.NewServer(httpapi.Options{
		Addr:           cfg.Server.Addr,
		AuthToken:      cfg.Server.AuthToken,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateWindow:     cfg.Server.RateWindow,
	}, httpapi.Deps{
		Assistant: assistant,
		Devices:   devices,
		Reminders: reminders,
		Events:    events,
		Logger:    logger,
	})

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task failed", "task", name, "error", err)
			}
		}()
	}

	if cfg.MQTT.Enabled {
		broker, err := mqtt.Connect(mqtt.BrokerConfig{
			URL:      cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      cfg.MQTT.QoS,
		}, logger)
		if err != nil {
			logger.Error("mqtt disabled", "error", err)
		} else {
			bridge := mqtt.NewBridge(broker, devices, cfg.MQTT.Prefix, logger)
			events.Subscribe(bridge.HandleEvent)
			background("mqtt", bridge.Run)
		}
	}

	if cfg.HomeAssistant.Enabled {
		ha := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token)
		checkEntities(ctx, ha, cfg.HomeAssistant.Entities, logger)
		mirror := application.NewMirror(ha, cfg.HomeAssistant.Entities, 0, logger)
		events.Subscribe(mirror.HandleEvent)
		background("homeassistant", mirror.Run)
	}

	if cfg.Tuya.Enabled {
		client := tuya.NewClient(cfg.Tuya.ClientID, cfg.Tuya.Secret, cfg.Tuya.Region)
		checkTuyaDevices(ctx, client, cfg.Tuya.Devices, logger)
		mirror := application.NewMirror(client, cfg.Tuya.Devices, 0, logger)
		events.Subscribe(mirror.HandleEvent)
		background("tuya", mirror.Run)
	}

	if audioSource != nil {
		background("voice", assistant.Run)
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.ListenAndServe() }()

	logger.Info("starting voice home assistant",
		"addr", cfg.Server.Addr,
		"ai_provider", cfg.AI.Provider,
		"voice_source", cfg.Voice.Source,
		"transcript", cfg.Transcript.Driver,
		"devices", len(devices.List()),
	)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serverErr:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	wg.Wait()
	return runErr
}

// core is the state shared by every surface: devices, reminders and the
// transcript.
type core struct {
	events      *application.Events
	devices     *application.DeviceRegistry
	scheduler   *application.Scheduler
	reminders   *application.ReminderStore
	interpreter *application.Interpreter
	transcript  application.Transcript

	closeTranscript func()
}

func newCore(cfg *config.Config, newID func() string, logger *slog.Logger) (*core, error) {
	transcript, closeTranscript, err := openTranscript(cfg.Transcript)
	if err != nil {
		return nil, err
	}

	c := &core{
		events:          application.NewEvents(),
		scheduler:       application.NewScheduler(time.Now, nil, logger),
		transcript:      transcript,
		closeTranscript: closeTranscript,
	}
	c.devices = application.NewDeviceRegistry(c.events, newID, seedDevices(cfg.Home, newID)...)
	c.reminders = application.NewReminderStore(c.scheduler, c.events, newID, logger)
	c.interpreter = application.NewInterpreter(c.devices, c.reminders, time.Now, logger)
	return c, nil
}

// Close stops the reminder timers before the transcript goes away so a
// reminder firing during teardown never writes to a closed store.
func (c *core) Close() {
	c.scheduler.Shutdown()
	c.closeTranscript()
}

func seedDevices(cfg config.HomeConfig, newID func() string) []domain.Device {
	var seed []domain.Device
	if cfg.SeedDemo {
		seed = application.DemoDevices(newID)
	}
	for _, d := range cfg.Devices {
		category, ok := domain.ParseCategory(d.Type)
		if !ok {
			slog.Warn("skipping configured device with unknown type", "name", d.Name, "type", d.Type)
			continue
		}
		seed = append(seed, domain.NewDevice(newID(), d.Name, category, d.Room))
	}
	return seed
}

func openTranscript(cfg config.TranscriptConfig) (application.Transcript, func(), error) {
	if cfg.Driver == "memory" {
		return application.NewMemoryTranscript(), func() {}, nil
	}
	db, err := sqlite.Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			slog.Warn("closing transcript", "error", err)
		}
	}, nil
}

func createChatModel(cfg *config.Config, logger *slog.Logger) application.ChatModel {
	if cfg.ChatAPIKey() == "" {
		if cfg.AI.Provider != "none" {
			logger.Warn("no API key for AI provider, chat replies use the offline fallback", "provider", cfg.AI.Provider)
		}
		return nil
	}
	switch cfg.AI.Provider {
	case "anthropic":
		return anthropic.NewClaudeClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
	case "openai":
		if cfg.OpenAI.BaseURL != "" {
			return openai.NewChatClientWithURL(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		}
		return openai.NewChatClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	default:
		return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)
	}
}

func createAudioSource(cfg config.VoiceConfig, logger *slog.Logger) application.AudioSource {
	switch cfg.Source {
	case "file":
		return audio.NewFileSource(cfg.FileDir, cfg.PollInterval, logger)
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, logger)
	default:
		return nil
	}
}

func checkEntities(ctx context.Context, ha *homeassistant.Client, entities map[string]string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	states, err := ha.States(ctx)
	if err != nil {
		logger.Warn("home assistant unreachable, mirroring anyway", "error", err)
		return
	}
	known := make(map[string]bool, len(states))
	for _, s := range states {
		known[s.EntityID] = true
	}
	for device, entity := range entities {
		if !known[entity] {
			logger.Warn("home assistant entity not found", "device", device, "entity", entity)
		}
	}
}

func checkTuyaDevices(ctx context.Context, client *tuya.Client, mapped map[string]string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cloudDevices, err := client.Devices(ctx)
	if err != nil {
		logger.Warn("tuya cloud unreachable, mirroring anyway", "error", err)
		return
	}
	online := make(map[string]bool, len(cloudDevices))
	for _, d := range cloudDevices {
		online[d.ID] = d.Online
	}
	for device, id := range mapped {
		isOnline, found := online[id]
		switch {
		case !found:
			logger.Warn("tuya device not found", "device", device, "tuya_id", id)
		case !isOnline:
			logger.Warn("tuya device offline", "device", device, "tuya_id", id)
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}

	return slog.New(handler)
}
