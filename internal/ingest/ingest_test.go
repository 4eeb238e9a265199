package ingest

import (
	"context"
	"testing"
	"time"

	"homeauto/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSensorTopic(t *testing.T) {
	home, sensor, ok := parseSensorTopic("homes/home-1/sensors/therm-2/state")
	assert.True(t, ok)
	assert.Equal(t, "home-1", home)
	assert.Equal(t, "therm-2", sensor)

	for _, topic := range []string{
		"homes/home-1/sensors/therm-2",
		"homes/home-1/devices/therm-2/state",
		"devices/therm-2/state",
		"homes/home-1/sensors/therm-2/state/extra",
	} {
		_, _, ok := parseSensorTopic(topic)
		assert.False(t, ok, "topic %q", topic)
	}
}

// fakeMessage implements the broker message interface for handler tests
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// sinkRecorder records stream writes and their position relative to
// evaluation; only StreamAdd matters to the handler
type sinkRecorder struct {
	order   *[]string
	streams []string
	fail    bool
}

func (c *sinkRecorder) ListAppend(ctx context.Context, key, value string) error      { return nil }
func (c *sinkRecorder) ListRemove(ctx context.Context, key, value string) error      { return nil }
func (c *sinkRecorder) ListRange(ctx context.Context, key string) ([]string, error)  { return nil, nil }
func (c *sinkRecorder) Get(ctx context.Context, key string) (string, bool, error)    { return "", false, nil }
func (c *sinkRecorder) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}
func (c *sinkRecorder) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return true, nil
}
func (c *sinkRecorder) DeleteByPrefix(ctx context.Context, prefix string) error { return nil }
func (c *sinkRecorder) StreamAdd(ctx context.Context, stream string, values map[string]interface{}) error {
	if c.fail {
		return assert.AnError
	}
	c.streams = append(c.streams, stream)
	*c.order = append(*c.order, "sink")
	return nil
}

type readingRecorder struct {
	order    *[]string
	readings []models.SensorReading
}

func (r *readingRecorder) OnSensorEvent(ctx context.Context, reading models.SensorReading) {
	r.readings = append(r.readings, reading)
	*r.order = append(*r.order, "evaluate")
}

func newHandlerRig() (*Ingestor, *sinkRecorder, *readingRecorder) {
	order := &[]string{}
	sink := &sinkRecorder{order: order}
	eval := &readingRecorder{order: order}
	return NewIngestor(nil, sink, eval), sink, eval
}

func TestOnMessageDecodesAndEvaluates(t *testing.T) {
	in, sink, eval := newHandlerRig()

	in.onMessage(nil, &fakeMessage{
		topic:   "homes/home-1/sensors/therm-2/state",
		payload: []byte(`{"temperature": 30, "online": true, "status": "ok"}`),
	})

	require.Len(t, eval.readings, 1)
	reading := eval.readings[0]
	assert.Equal(t, "home-1", reading.HomeID)
	assert.Equal(t, "therm-2", reading.SensorID)
	assert.Equal(t, models.Num(30), reading.Fields["temperature"])
	assert.Equal(t, models.Boolean(true), reading.Fields["online"])
	assert.Equal(t, models.Str("ok"), reading.Fields["status"])
	assert.False(t, reading.Timestamp.IsZero())

	// the reading reaches the time-series sink ahead of rule evaluation
	assert.Equal(t, []string{"stream:sensor:home-1"}, sink.streams)
	assert.Equal(t, []string{"sink", "evaluate"}, *eval.order)
}

func TestOnMessageRejectsBadPayload(t *testing.T) {
	in, sink, eval := newHandlerRig()

	in.onMessage(nil, &fakeMessage{
		topic:   "homes/home-1/sensors/therm-2/state",
		payload: []byte(`{not json`),
	})

	assert.Empty(t, eval.readings)
	assert.Empty(t, sink.streams)
}

func TestOnMessageRejectsUnexpectedTopic(t *testing.T) {
	in, sink, eval := newHandlerRig()

	in.onMessage(nil, &fakeMessage{
		topic:   "devices/therm-2/state",
		payload: []byte(`{"temperature": 30}`),
	})

	assert.Empty(t, eval.readings)
	assert.Empty(t, sink.streams)
}

func TestOnMessageSinkFailureDoesNotBlockEvaluation(t *testing.T) {
	in, sink, eval := newHandlerRig()
	sink.fail = true

	in.onMessage(nil, &fakeMessage{
		topic:   "homes/home-1/sensors/therm-2/state",
		payload: []byte(`{"temperature": 30}`),
	})

	require.Len(t, eval.readings, 1)
	assert.Empty(t, sink.streams)
}
