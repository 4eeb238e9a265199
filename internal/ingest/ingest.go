package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"homeauto/internal/cache"
	"homeauto/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// sensorTopic is the subscription covering every home's sensor state updates
const sensorTopic = "homes/+/sensors/+/state"

// Evaluator receives decoded readings for rule evaluation
type Evaluator interface {
	OnSensorEvent(ctx context.Context, reading models.SensorReading)
}

// Ingestor subscribes to sensor state topics, forwards each reading to the
// time-series sink stream, and then hands it to the rule engine
type Ingestor struct {
	client mqtt.Client
	cache  cache.Cache
	engine Evaluator
}

// NewIngestor creates an ingestor over a connected MQTT client
func NewIngestor(client mqtt.Client, c cache.Cache, e Evaluator) *Ingestor {
	return &Ingestor{client: client, cache: c, engine: e}
}

// Start subscribes to the sensor topic
func (in *Ingestor) Start() error {
	log.Printf("INGEST: Subscribing to %s", sensorTopic)
	token := in.client.Subscribe(sensorTopic, 1, in.onMessage)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Stop unsubscribes from the sensor topic
func (in *Ingestor) Stop() {
	in.client.Unsubscribe(sensorTopic)
}

// onMessage decodes one reading and pushes it through sink and evaluation
func (in *Ingestor) onMessage(client mqtt.Client, msg mqtt.Message) {
	homeID, sensorID, ok := parseSensorTopic(msg.Topic())
	if !ok {
		log.Printf("INGEST: Unexpected topic %s", msg.Topic())
		return
	}

	var fields map[string]models.Value
	if err := json.Unmarshal(msg.Payload(), &fields); err != nil {
		log.Printf("INGEST: Bad payload on %s: %v", msg.Topic(), err)
		return
	}

	reading := models.SensorReading{
		HomeID:    homeID,
		SensorID:  sensorID,
		Fields:    fields,
		Timestamp: time.Now(),
	}

	ctx := context.Background()
	in.sink(ctx, reading, msg.Payload())
	in.engine.OnSensorEvent(ctx, reading)
}

// sink appends the raw reading to the home's measurement stream ahead of
// rule evaluation. Sink failures never block evaluation.
func (in *Ingestor) sink(ctx context.Context, reading models.SensorReading, payload []byte) {
	stream := fmt.Sprintf("stream:sensor:%s", reading.HomeID)
	err := in.cache.StreamAdd(ctx, stream, map[string]interface{}{
		"sensor":    reading.SensorID,
		"fields":    string(payload),
		"timestamp": reading.Timestamp.UnixMilli(),
	})
	if err != nil {
		log.Printf("INGEST: Sink write failed for %s: %v", stream, err)
	}
}

// parseSensorTopic extracts (home, sensor) from homes/{home}/sensors/{sensor}/state
func parseSensorTopic(topic string) (homeID, sensorID string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != "homes" || parts[2] != "sensors" || parts[4] != "state" {
		return "", "", false
	}
	return parts[1], parts[3], true
}
