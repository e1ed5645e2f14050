package mqttbroadcast

import (
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/tests"
)

type doneToken struct {
	mqtt.Token
	err error
}

func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes; other methods are not used.
type fakeClient struct {
	mqtt.Client
	msgs []published
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.msgs = append(c.msgs, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func TestPublisher(t *testing.T) {
	client := new(fakeClient)
	p := NewPublisher(client, "tulia/children", testutil.NewLogger(testutil.NewConfig()))

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	p.Publish("abc", emotion.Transition{From: emotion.ModeCalming, To: emotion.ModeLearning, At: at, Module: 4})

	require.Len(t, client.msgs, 1)
	msg := client.msgs[0]
	assert.Equal(t, "tulia/children/abc/mode", msg.topic)
	assert.Equal(t, byte(0), msg.qos)
	assert.False(t, msg.retained)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, map[string]interface{}{
		"child_id": "abc",
		"from":     "calming",
		"mode":     "learning",
		"module":   float64(4),
		"at":       "2024-05-06T07:08:09Z",
	}, got)
}
