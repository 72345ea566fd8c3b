package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/line-follower/internal/logic"
)

// bufferCapacity bounds the messages kept while the broker is unreachable.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker.
// Publishing never waits for the broker: while disconnected, messages are
// held in a ring buffer and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu  sync.Mutex
	buf *ringBuffer

	// onError is called from a token-watching goroutine when the broker
	// rejects or fails to deliver a message.
	onError func(topic string, err error)
}

func newPublisher(client paho.Client) *RealPublisher {
	return &RealPublisher{
		client: client,
		buf:    newRingBuffer(bufferCapacity),
		onError: func(topic string, err error) {
			log.Printf("mqtt: publish to %s failed: %v", topic, err)
		},
	}
}

// NewRealPublisher creates a publisher for the given broker. The initial
// connection is retried in the background; an unreachable broker is not an
// error, only a rejected connection is.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := newPublisher(nil)

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(WillPayload()), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.flush() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a command change to the MQTT broker.
func (p *RealPublisher) Publish(result logic.Result) error {
	payload, err := FormatPayload(result)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	p.send(bufferedMsg{topic: Topic, payload: payload})
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		// The connection may have opened after the check, with the OnConnect
		// flush already finished. Flush here so the message is not stranded.
		if p.client.IsConnectionOpen() {
			p.flush()
		}
		return
	}
	p.mu.Unlock()
	p.publish(msg)
}

// flush replays buffered messages after (re)connecting.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	msgs := p.buf.drainAll()
	p.mu.Unlock()

	if len(msgs) > 0 {
		log.Printf("mqtt: connected, replaying %d buffered messages", len(msgs))
	}
	for _, m := range msgs {
		p.publish(m)
	}
}

// publish hands msg to the client and reports a failed delivery without
// blocking the caller.
func (p *RealPublisher) publish(msg bufferedMsg) {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			p.onError(msg.topic, err)
		}
	}()
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker, giving in-flight messages up to a second.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
