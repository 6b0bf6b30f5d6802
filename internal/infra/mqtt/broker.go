// Package mqtt mirrors device state onto an MQTT broker and accepts power
// and level commands from it.
package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Broker is the subset of an MQTT client the bridge needs.
type Broker interface {
	Publish(topic string, retained bool, payload []byte) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	Disconnect()
}

type BrokerConfig struct {
	URL      string
	ClientID string
	Username string
	Password string
	QoS      byte
	Timeout  time.Duration
}

type PahoBroker struct {
	client  paho.Client
	qos     byte
	timeout time.Duration
	logger  *slog.Logger
}

// Connect dials the broker. Subscriptions made through the returned broker
// are restored after a reconnect.
func Connect(cfg BrokerConfig, logger *slog.Logger) (*PahoBroker, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	b := &PahoBroker{qos: cfg.QoS, timeout: cfg.Timeout, logger: logger}

	opts := paho.NewClientOptions().AddBroker(cfg.URL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectRetry(true)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(false)
	opts.SetResumeSubs(true)
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		logger.Info("mqtt reconnecting", "broker", cfg.URL)
	})
	opts.SetOnConnectHandler(func(paho.Client) {
		logger.Info("mqtt connected", "broker", cfg.URL)
	})

	b.client = paho.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connecting to %s: timed out", cfg.URL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.URL, err)
	}
	return b, nil
}

func (b *PahoBroker) Publish(topic string, retained bool, payload []byte) error {
	return b.wait(b.client.Publish(topic, b.qos, retained, payload), "publishing "+topic)
}

func (b *PahoBroker) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := b.client.Subscribe(topic, b.qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	return b.wait(token, "subscribing "+topic)
}

func (b *PahoBroker) Disconnect() {
	b.client.Disconnect(250)
}

func (b *PahoBroker) wait(token paho.Token, what string) error {
	if !token.WaitTimeout(b.timeout) {
		return fmt.Errorf("%s: timed out", what)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
