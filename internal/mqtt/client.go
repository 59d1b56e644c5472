package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JorgeS15/AirLab/internal/config"
	digitaltypes "github.com/JorgeS15/AirLab/internal/modules/digital/types"
	pressuretypes "github.com/JorgeS15/AirLab/internal/modules/pressure/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	channelsTopic   = "channels"
	outputsTopic    = "outputs"
	outputsSetTopic = "outputs/set"

	publishTimeout = 5 * time.Second
)

var ErrNotConnected = errors.New("mqtt client not connected")

// OutputCommander applies output commands received from the broker.
type OutputCommander interface {
	SetOutput(index, value int) (digitaltypes.Vector, error)
	SetAllOutputs(values []int) (digitaltypes.Vector, error)
}

// Client publishes snapshots and output state under a topic prefix and,
// once a commander is attached, accepts output commands on <prefix>/outputs/set.
type Client struct {
	client    mqtt.Client
	cfg       config.Config
	prefix    string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	commander OutputCommander

	stopCh   chan struct{}
	stopOnce sync.Once

	outMu       sync.Mutex
	lastOutputs *digitaltypes.Vector
	pending     chan digitaltypes.Vector
}

type outputCommand struct {
	Output  *int  `json:"output"`
	Value   *int  `json:"value"`
	Outputs []int `json:"outputs"`
}

func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	c := &Client{
		cfg:     cfg,
		prefix:  strings.Trim(cfg.MQTTTopicPrefix, "/"),
		logger:  logger,
		stopCh:  make(chan struct{}),
		pending: make(chan digitaltypes.Vector, 1),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	// Suffix keeps two bridges on one broker from kicking each other off.
	opts.SetClientID(cfg.MQTTClientID + "-" + uuid.NewString()[:8])

	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Clean sessions drop subscriptions, so they are renewed on every connect.
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := c.subscribe(); err != nil {
			logger.Error("mqtt subscribe failed", "error", err)
		}
		c.requeueOutputs()
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Topic returns prefix/suffix.
func (c *Client) Topic(suffix string) string {
	return c.prefix + "/" + suffix
}

// HandleOutputCommands attaches the commander. Call before Connect.
func (c *Client) HandleOutputCommands(cmd OutputCommander) {
	c.mu.Lock()
	c.commander = cmd
	c.mu.Unlock()
}

// Connect waits for the first connection to the broker, honouring ctx and
// Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			c.client.Disconnect(0)
			return ctx.Err()
		case <-c.stopCh:
			c.client.Disconnect(0)
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// PublishSnapshot sends a snapshot to <prefix>/channels at QoS 0 without
// waiting for the broker.
func (c *Client) PublishSnapshot(snap pressuretypes.Snapshot) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	c.client.Publish(c.Topic(channelsTopic), 0, false, data)
	return nil
}

// PublishOutputs sends the output vector to <prefix>/outputs, retained, so a
// late subscriber sees the current state.
func (c *Client) PublishOutputs(v digitaltypes.Vector) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	topic := c.Topic(outputsTopic)
	data, err := json.Marshal(map[string]any{
		"outputs":   v.Slice(),
		"timestamp": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}

	token := c.client.Publish(topic, 1, true, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish outputs: %w", token.Error())
	}

	c.logger.Debug("published outputs", "topic", topic, "outputs", v.Slice())
	return nil
}

func (c *Client) subscribe() error {
	c.mu.RLock()
	cmd := c.commander
	c.mu.RUnlock()
	if cmd == nil {
		return nil
	}

	topic := c.Topic(outputsSetTopic)
	qos := byte(1)

	token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		c.handleCommand(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	c.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (c *Client) handleCommand(topic string, payload []byte) {
	c.mu.RLock()
	cmd := c.commander
	c.mu.RUnlock()
	if cmd == nil {
		return
	}

	var msg outputCommand
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Warn("failed to parse output command", "topic", topic, "error", err, "payload", string(payload))
		return
	}

	var (
		v   digitaltypes.Vector
		err error
	)
	switch {
	case msg.Outputs != nil:
		v, err = cmd.SetAllOutputs(msg.Outputs)
	case msg.Output != nil && msg.Value != nil:
		v, err = cmd.SetOutput(*msg.Output, *msg.Value)
	default:
		c.logger.Warn("output command needs output and value, or outputs", "topic", topic, "payload", string(payload))
		return
	}
	if err != nil {
		c.logger.Warn("output command rejected", "topic", topic, "error", err)
		return
	}
	c.logger.Info("output command applied", "topic", topic, "outputs", v.Slice())
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect is idempotent. After it, Connect returns "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
