package sink

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTProducer publishes at QoS 0 without waiting on the token. MQTT 3.1.1
// has no message key, so the key is not transmitted.
type MQTTProducer struct {
	client mqtt.Client
}

// NewMQTTProducer connects to broker once; the connection is held until Close.
func NewMQTTProducer(broker, clientID string) (*MQTTProducer, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return &MQTTProducer{client: client}, nil
}

func (m *MQTTProducer) Publish(_ context.Context, topic, _ string, value []byte) error {
	token := m.client.Publish(topic, 0, false, value)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}

func (m *MQTTProducer) Close() error {
	m.client.Disconnect(250)
	return nil
}
