package mqtt

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, rate int) *Client {
	t.Helper()
	u, err := url.Parse("tcp://localhost:1883")
	require.NoError(t, err)
	return NewClient(u, "lab sensor", rate)
}

func TestParsePayload(t *testing.T) {
	v, err := ParsePayload([]byte(" 12.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	_, err = ParsePayload([]byte("warm"))
	assert.Error(t, err)
}

func TestSample(t *testing.T) {
	s := NewSample(3)
	var got []bool
	for i := 0; i < 6; i++ {
		got = append(got, s.Ready())
	}
	assert.Equal(t, []bool{false, false, true, false, false, true}, got)

	every := NewSample(0)
	assert.True(t, every.Ready())
	assert.True(t, every.Ready())
}

func TestRegisterHassSensor(t *testing.T) {
	c := newTestClient(t, 1)
	sensor := c.NewHassSensor("Moving Average")
	assert.Equal(t, "Lab Sensor", sensor.Device.Name)
	assert.Equal(t, "rollavg/lab sensor/sensor/moving_average", sensor.StateTopic)

	id := c.RegisterHassSensor(sensor)
	assert.Equal(t, "lab_sensor_moving_average", id)
	registered := c.hassSensors[id]
	assert.Equal(t, "homeassistant/sensor/lab_sensor_moving_average/config", registered.configTopic)
	assert.Equal(t, []string{"lab_sensor"}, registered.Device.Identifiers)

	assert.Error(t, c.HassPublishSensor("missing", "1"))
}

func TestGetPublisherRegistersBeforeAnnounce(t *testing.T) {
	c := newTestClient(t, 1)
	require.Empty(t, c.hassSensors)

	averages := make(chan float64)
	publish := c.GetPublisher(averages)
	require.Len(t, c.hassSensors, 1)
	assert.Contains(t, c.hassSensors, "lab_sensor_moving_average")

	close(averages)
	require.NoError(t, publish())
}
