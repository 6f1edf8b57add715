package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dyno.report/internal/dyno"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connectErr   error
	publishes    []published
	publishedCh  chan published
	disconnected bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{publishedCh: make(chan published, 64)}
}

func (c *fakeClient) Connect() paho.Token { return &fakeToken{err: c.connectErr} }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	p := published{topic: topic, payload: payload.([]byte)}
	c.publishes = append(c.publishes, p)
	c.mu.Unlock()
	c.publishedCh <- p
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

// TestConfigDefaults fills in client ID and topic prefix.
func TestConfigDefaults(t *testing.T) {
	cfg := Config{BrokerURL: "tcp://localhost:1883"}.withDefaults()
	assert.Equal(t, "dyno-publisher", cfg.ClientID)
	assert.Equal(t, "dyno", cfg.TopicPrefix)
	assert.True(t, cfg.Enabled())
	assert.False(t, Config{}.Enabled())
}

// TestRunConnectError surfaces broker connection failures.
func TestRunConnectError(t *testing.T) {
	client := newFakeClient()
	client.connectErr = errors.New("connection refused")

	pub := NewPublisher(Config{BrokerURL: "tcp://localhost:1883"}, client)
	pipeline, err := dyno.NewPipeline(dyno.DefaultParams(), nil)
	require.NoError(t, err)

	err = pub.Run(context.Background(), pipeline)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// TestRunPublishesReadings drives a real pipeline and expects reading and
// state messages to arrive at the fake broker.
func TestRunPublishesReadings(t *testing.T) {
	client := newFakeClient()
	pub := NewPublisher(Config{BrokerURL: "tcp://localhost:1883", TopicPrefix: "bench"}, client)

	pipeline, err := dyno.NewPipeline(dyno.DefaultParams(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pipeline.Run(ctx)
	go pub.Run(ctx, pipeline)

	// Give the publisher a moment to subscribe before ingesting.
	time.Sleep(50 * time.Millisecond)
	pipeline.IngestLine("1000000,980000,20000") // 3000 RPM

	var gotReading, gotState bool
	deadline := time.After(2 * time.Second)
	for !gotReading || !gotState {
		select {
		case p := <-client.publishedCh:
			switch p.topic {
			case "bench/reading":
				var r dyno.Reading
				require.NoError(t, json.Unmarshal(p.payload, &r))
				assert.InDelta(t, 3000.0, r.RPM, 0.01)
				gotReading = true
			case "bench/state":
				var s map[string]dyno.State
				require.NoError(t, json.Unmarshal(p.payload, &s))
				assert.Equal(t, dyno.StateLive, s["state"])
				gotState = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for publishes (reading=%v state=%v)", gotReading, gotState)
		}
	}

	cancel()
}
