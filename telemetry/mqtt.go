package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"hushlight/log"
)

const (
	mqttRetryInterval = 10 * time.Second
	mqttMaxReconnect  = 30 * time.Second
	mqttQoS           = 0
)

// MQTTSink publishes records as JSON to <topic>/<device id>/<event>. The
// paho client reconnects on its own; while it is down Publish is a no-op.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

func NewMQTTSink(broker, topic, clientID string) *MQTTSink {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(mqttRetryInterval).
		SetMaxReconnectInterval(mqttMaxReconnect).
		SetConnectTimeout(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warnf("mqtt connection lost: %v", err)
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info("mqtt connected to " + broker)
		})
	return &MQTTSink{client: mqtt.NewClient(opts), topic: topic}
}

// NewMQTTSinkWithClient wraps an existing client.
func NewMQTTSinkWithClient(c mqtt.Client, topic string) *MQTTSink {
	return &MQTTSink{client: c, topic: topic}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Connect starts the background connect loop and returns immediately.
func (s *MQTTSink) Connect() {
	s.client.Connect()
}

func (s *MQTTSink) Connected() bool {
	return s.client.IsConnectionOpen()
}

func (s *MQTTSink) Topic(r Record) string {
	return fmt.Sprintf("%s/%s/%s", s.topic, r.DeviceID, r.Event)
}

func (s *MQTTSink) Publish(ctx context.Context, r Record) error {
	if !s.client.IsConnectionOpen() {
		return nil
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	token := s.client.Publish(s.Topic(r), mqttQoS, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}
