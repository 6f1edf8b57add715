// Package mqtt publishes pipeline readings to an MQTT broker. The
// publisher is optional: it runs only when a broker URL is configured,
// and a broker outage never affects the pipeline (QoS 0, non-blocking
// subscription semantics upstream).
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/dyno.report/internal/dyno"
	"github.com/banshee-data/dyno.report/internal/monitoring"
)

const connectTimeout = 5 * time.Second

// Client is the slice of paho.Client the publisher uses, split out so
// tests can substitute a fake.
type Client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Config holds the publisher settings. An empty BrokerURL disables
// publishing entirely.
type Config struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
}

// Enabled reports whether a broker has been configured.
func (c Config) Enabled() bool { return c.BrokerURL != "" }

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = "dyno-publisher"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "dyno"
	}
	return c
}

// Publisher forwards published readings and state transitions to a
// broker.
type Publisher struct {
	cfg    Config
	client Client
}

// NewPublisher creates a publisher for the given config. A nil client
// builds a real paho client with auto-reconnect.
func NewPublisher(cfg Config, client Client) *Publisher {
	cfg = cfg.withDefaults()
	if client == nil {
		opts := paho.NewClientOptions().
			AddBroker(cfg.BrokerURL).
			SetClientID(cfg.ClientID).
			SetAutoReconnect(true).
			SetConnectRetry(true)
		client = paho.NewClient(opts)
	}
	return &Publisher{cfg: cfg, client: client}
}

// Run connects and forwards every published reading until the context is
// cancelled. State transitions are published to <prefix>/state as they
// happen; readings go to <prefix>/reading.
func (p *Publisher) Run(ctx context.Context, pipeline *dyno.Pipeline) error {
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out connecting to MQTT broker %s", p.cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", p.cfg.BrokerURL, err)
	}
	monitoring.Logf("mqtt: connected to %s, publishing under %s/", p.cfg.BrokerURL, p.cfg.TopicPrefix)
	defer p.client.Disconnect(250)

	id, readings, err := pipeline.Subscribe()
	if err != nil {
		return fmt.Errorf("failed to subscribe to pipeline: %w", err)
	}
	defer pipeline.Unsubscribe(id)

	lastState := dyno.State("")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-readings:
			if !ok {
				return nil
			}
			if err := p.publishJSON(p.cfg.TopicPrefix+"/reading", r); err != nil {
				monitoring.Logf("mqtt: failed to publish reading: %v", err)
			}
			if state := pipeline.State(); state != lastState {
				lastState = state
				if err := p.publishJSON(p.cfg.TopicPrefix+"/state", map[string]dyno.State{"state": state}); err != nil {
					monitoring.Logf("mqtt: failed to publish state: %v", err)
				}
			}
		}
	}
}

func (p *Publisher) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	token := p.client.Publish(topic, 0, false, payload)
	// QoS 0 tokens complete immediately; Error catches client-side
	// failures like a closed connection.
	token.Wait()
	return token.Error()
}
