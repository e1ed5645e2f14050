// Package mqttbroadcast publishes mode transitions to an MQTT broker, for companion devices.
package mqttbroadcast

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/emotion"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 2 * time.Second
	qos            = 0
)

type payload struct {
	ChildID string    `json:"child_id"`
	From    string    `json:"from"`
	Mode    string    `json:"mode"`
	Module  int       `json:"module,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher publishes to "<prefix>/<child_id>/mode".
type Publisher struct {
	client mqtt.Client
	prefix string
	logger core.Logger
}

// Connect dials the configured broker.
func Connect(conf core.MQTTConfig, logger core.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(conf.Broker).
		SetClientID(conf.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(connectTimeout) || token.Error() != nil {
		err := token.Error()
		if err == nil {
			err = errors.New("timed out")
		}
		return nil, errors.Wrap(err, "connecting to MQTT broker")
	}
	return NewPublisher(client, conf.TopicPrefix, logger), nil
}

func NewPublisher(client mqtt.Client, prefix string, logger core.Logger) *Publisher {
	return &Publisher{client: client, prefix: prefix, logger: logger}
}

func (p *Publisher) Topic(childID string) string {
	return fmt.Sprintf("%s/%s/mode", p.prefix, childID)
}

func (p *Publisher) Publish(childID string, t emotion.Transition) {
	data, err := json.Marshal(payload{
		ChildID: childID,
		From:    t.From.String(),
		Mode:    t.To.String(),
		Module:  t.Module,
		At:      t.At.UTC(),
	})
	if err != nil {
		p.logger.Error(fmt.Sprintf("encoding MQTT payload: %v", err), errors.Wrap(err, "encoding MQTT payload"))
		return
	}

	token := p.client.Publish(p.Topic(childID), qos, false, data)
	if !token.WaitTimeout(publishTimeout) {
		p.logger.Warn(fmt.Sprintf("MQTT publish to %s timed out", p.Topic(childID)))
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Error(fmt.Sprintf("MQTT publish error: %v", err), errors.Wrap(err, "publishing transition"))
	}
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
