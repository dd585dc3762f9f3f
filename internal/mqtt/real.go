package mqtt

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	paho "github.com/eclipse/paho.mqtt.golang"
	"pkt.systems/pslog"

	"github.com/sweeney/keyboard-sensor/internal/logic"
)

// Config holds broker connection settings.
type Config struct {
	Broker         string
	ClientID       string
	BufferSize     int
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = "keyboard-sensor"
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 100
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	return c
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed, oldest first, when the
// client reconnects.
type RealPublisher struct {
	client paho.Client
	cfg    Config
	log    pslog.Logger
	now    func() time.Time

	mu            sync.Mutex
	buf           *ringBuffer
	connectedOnce bool
}

// NewRealPublisher creates a publisher for the configured broker. An
// unreachable broker is not fatal: the client keeps retrying in the
// background and messages are buffered meanwhile.
func NewRealPublisher(cfg Config, logger pslog.Logger) (*RealPublisher, error) {
	p := newPublisher(cfg, logger)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     EventOffline,
		Reason:    "connection lost",
	})
	if err != nil {
		return nil, errors.Wrap(err, "format will payload")
	}

	opts := paho.NewClientOptions().
		AddBroker(p.cfg.Broker).
		SetClientID(p.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(p.cfg.ConnectTimeout) {
		p.log.Warn("broker not reachable yet, buffering", "broker", p.cfg.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "connect to broker %s", p.cfg.Broker)
	}
	return p, nil
}

func newPublisher(cfg Config, logger pslog.Logger) *RealPublisher {
	cfg = cfg.withDefaults()
	return &RealPublisher{
		cfg: cfg,
		log: logger.With("component", "mqtt"),
		now: time.Now,
		buf: newRingBuffer(cfg.BufferSize),
	}
}

// Publish sends a keyboard event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return errors.Wrap(err, "format payload")
	}
	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return errors.Wrap(err, "format system payload")
	}
	// QoS 1 (at-least-once) so lifecycle events are not lost
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the connection to the broker is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		p.log.Warn("closing with undelivered messages", "count", n)
	}
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		p.bufferLocked(msg)
		return nil
	}
	if err := p.publishLocked(msg); err != nil {
		p.bufferLocked(msg)
		return errors.Wrapf(err, "publish to %s (buffered)", msg.topic)
	}
	return nil
}

func (p *RealPublisher) publishLocked(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		return errors.New("publish timeout")
	}
	return token.Error()
}

func (p *RealPublisher) bufferLocked(msg bufferedMsg) {
	if p.buf.push(msg) {
		p.log.Warn("buffer full, dropping oldest", "capacity", p.buf.capacity)
	}
}

// onConnect replays buffered messages and announces reconnections.
// Called by paho on its own goroutine.
func (p *RealPublisher) onConnect(paho.Client) {
	p.mu.Lock()
	pending := p.buf.drainAll()
	reconnect := p.connectedOnce
	p.connectedOnce = true

	replayed := 0
	for i, msg := range pending {
		if err := p.publishLocked(msg); err != nil {
			p.log.Warn("replay interrupted", "err", err, "remaining", len(pending)-i)
			for _, rest := range pending[i:] {
				p.buf.push(rest)
			}
			break
		}
		replayed++
	}
	p.mu.Unlock()

	p.log.Info("connected", "broker", p.cfg.Broker, "replayed", replayed)
	if !reconnect {
		return
	}
	err := p.PublishSystem(SystemEvent{
		Timestamp: p.now(),
		Event:     EventReconnected,
		Retained:  true,
	})
	if err != nil {
		p.log.Warn("publish reconnected failed", "err", err)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warn("connection lost", "err", err)
}

// Compile-time checks.
var (
	_ Publisher        = (*RealPublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
)
