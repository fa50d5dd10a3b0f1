package ingestion

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"waste-fleet-monitor/internal/logger"
	pkgmqtt "waste-fleet-monitor/pkg/mqtt"
)

// Subscriber is the broker side the listener needs.
type Subscriber interface {
	Connect() error
	Subscribe(topic string, qos byte, handler pkgmqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
	Disconnect()
}

// Submitter accepts inbound messages.
type Submitter interface {
	Submit(msg *Message) bool
}

// MQTTListener subscribes to the sensor data topic and feeds the processor.
type MQTTListener struct {
	client    Subscriber
	topic     string
	qos       byte
	processor Submitter

	mu      sync.Mutex
	started bool
}

func NewMQTTListener(client Subscriber, topic string, qos byte, processor Submitter) (*MQTTListener, error) {
	if client == nil {
		return nil, errors.New("mqtt client is required")
	}
	if topic == "" {
		return nil, errors.New("mqtt data topic is not configured")
	}
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	return &MQTTListener{client: client, topic: topic, qos: qos, processor: processor}, nil
}

// Start connects and subscribes. Calling it twice is a no-op.
func (l *MQTTListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return nil
	}

	if err := l.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	if err := l.client.Subscribe(l.topic, l.qos, l.handle); err != nil {
		l.client.Disconnect()
		return fmt.Errorf("subscribe failed for topic %s: %w", l.topic, err)
	}

	logger.Info("Listening for sensor messages", zap.String("topic", l.topic))
	l.started = true
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (l *MQTTListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return
	}

	if err := l.client.Unsubscribe(l.topic); err != nil {
		logger.Warn("Failed to unsubscribe from MQTT topic", zap.String("topic", l.topic), zap.Error(err))
	}
	l.client.Disconnect()
	l.started = false
}

func (l *MQTTListener) handle(topic string, payload []byte) {
	// paho reuses the payload buffer after the callback returns.
	body := make([]byte, len(payload))
	copy(body, payload)
	l.processor.Submit(&Message{Topic: topic, Payload: body, ReceivedAt: time.Now().UTC()})
}
