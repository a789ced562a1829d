package mqtt

import (
	"crypto/md5"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/mikesmitty/rollavg/pkg/stream"
	"github.com/pkg/errors"
)

type Client struct {
	client      paho.Client
	clientID    string
	topicPrefix string
	qos         byte
	retained    bool
	sampleRate  int
	hassSensors map[string]HassSensor
	mu          sync.Mutex
}

// NewClient prepares a client for broker without connecting. An empty clientID
// falls back to the short hostname.
func NewClient(broker *url.URL, clientID string, sampleRate int) *Client {
	c := &Client{}

	var urls []*url.URL
	urls = append(urls, broker)

	if clientID == "" {
		hostname, _ := os.Hostname()
		clientID = strings.Split(hostname, ".")[0]
	}
	if clientID == "" {
		now := time.Now().UnixNano()
		sum := md5.Sum([]byte(strconv.FormatInt(now, 10)))
		clientID = fmt.Sprintf("%x", sum[:6])
	}
	if sampleRate < 1 {
		sampleRate = 1
	}

	c.qos = 1
	c.topicPrefix = "rollavg/" + clientID
	c.clientID = clientID
	c.sampleRate = sampleRate
	c.hassSensors = make(map[string]HassSensor)

	slog.Info("configuring mqtt", "url", broker, "clientid", clientID, "module", "mqtt")
	c.client = paho.NewClient(&paho.ClientOptions{
		Servers:        urls,
		ClientID:       clientID,
		ConnectRetry:   true,
		ConnectTimeout: 30 * time.Second,
	})

	return c
}

func (c *Client) Connect() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		slog.Error("mqtt connection failed", "error", token.Error(), "module", "mqtt")
		return errors.Wrap(token.Error(), "mqtt connect")
	}
	return nil
}

func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	if token := c.client.Subscribe(topic, c.qos, handler); token.Wait() && token.Error() != nil {
		slog.Error("mqtt subscription failed", "error", token.Error(), "topic", topic, "module", "mqtt")
		return errors.Wrapf(token.Error(), "mqtt subscribe %s", topic)
	}
	return nil
}

// ParsePayload reads a message body holding a single decimal number.
func ParsePayload(payload []byte) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse mqtt payload")
	}
	return v, nil
}

// Source subscribes to topic and forwards every message as a sample, in the
// order the broker delivers them. Unparseable payloads arrive as failed items.
// The returned stop function unsubscribes and closes the channel.
func (c *Client) Source(topic string, size int) (<-chan stream.Item[float64], func(), error) {
	ch := make(chan stream.Item[float64], size)
	done := make(chan struct{})
	var (
		mu     sync.RWMutex
		closed bool
	)

	handler := func(_ paho.Client, msg paho.Message) {
		v, err := ParsePayload(msg.Payload())
		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		select {
		case ch <- stream.Item[float64]{Value: v, Err: err}:
		case <-done:
		}
	}
	if err := c.Subscribe(topic, handler); err != nil {
		return nil, nil, err
	}
	slog.Info("subscribed to sample topic", "topic", topic, "module", "mqtt")

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			if token := c.client.Unsubscribe(topic); token.WaitTimeout(5*time.Second) && token.Error() != nil {
				slog.Error("mqtt unsubscribe failed", "error", token.Error(), "topic", topic, "module", "mqtt")
			}
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	return ch, stop, nil
}

// GetPublisher publishes every sampleRate-th average until averages is closed.
func (c *Client) GetPublisher(averages <-chan float64) func() error {
	sensor := c.RegisterHassSensor(c.NewHassSensor("Moving Average"))
	sample := NewSample(c.sampleRate)

	return func() error {
		for avg := range averages {
			if !sample.Ready() {
				continue
			}
			slog.Debug("mqtt publishing", "field", "average", "value", avg, "module", "mqtt")
			if err := c.HassPublishSensor(sensor, strconv.FormatFloat(avg, 'f', 5, 64)); err != nil {
				return err
			}
		}
		return nil
	}
}

func (c *Client) Publish(topic string, msg string) {
	t := c.client.Publish(topic, c.qos, c.retained, msg)
	go func() {
		_ = t.WaitTimeout(5 * time.Second)
		if t.Error() != nil {
			slog.Error("mqtt message publish failed", "error", t.Error(), "topic", topic, "module", "mqtt")
		}
	}()
}
