package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"homeauto/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// commandQoS gives at-least-once delivery on the control channel
const commandQoS = 1

// commandPayload is the wire shape published per triggered rule
type commandPayload struct {
	Name   string          `json:"name"`
	Action []models.Action `json:"action"`
}

// MQTTDispatcher publishes commands on the per-home control topic
type MQTTDispatcher struct {
	client mqtt.Client
}

// NewMQTTClient creates and connects an MQTT client
func NewMQTTClient(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

// NewMQTTDispatcher wraps a connected client
func NewMQTTDispatcher(client mqtt.Client) *MQTTDispatcher {
	return &MQTTDispatcher{client: client}
}

// ControlTopic is the control channel for one home
func ControlTopic(homeID string) string {
	return fmt.Sprintf("homes/%s/control", homeID)
}

// Dispatch publishes one command message addressed to deviceName. No retry
// here; the transport's QoS handles redelivery.
func (d *MQTTDispatcher) Dispatch(ctx context.Context, homeID, deviceName string, actions []models.Action) error {
	payload, err := json.Marshal(commandPayload{Name: deviceName, Action: actions})
	if err != nil {
		return err
	}
	topic := ControlTopic(homeID)
	log.Printf("DISPATCH: Publishing command to %s for device %s: %s", topic, deviceName, payload)
	d.client.Publish(topic, commandQoS, false, payload)
	return nil
}
