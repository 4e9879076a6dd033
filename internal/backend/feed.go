package backend

import (
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/lumen-signage/lumen/internal/adapters/mqttserver"
)

// MQTTFeed adapts the MQTT client to the Feed interface.
type MQTTFeed struct {
	Client *mqttserver.Client
}

// Subscribe subscribes a payload handler to a topic.
func (f MQTTFeed) Subscribe(topic string, qos byte, handler func(payload []byte)) error {
	return f.Client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	})
}

// Unsubscribe removes a topic subscription.
func (f MQTTFeed) Unsubscribe(topic string) error {
	return f.Client.Unsubscribe(topic)
}
