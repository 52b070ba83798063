// RTLPAGER - An rtl-sdr receiver for POCSAG and FLEX pagers.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package forward

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/bemasher/rtlpager/parse"
)

const DefaultTopic = "rtlpager/messages"

// MQTTSender publishes each message to a topic at QoS 0.
type MQTTSender struct {
	client mqtt.Client
	topic  string
}

func clientID() string {
	b := make([]byte, 8)
	// crypto/rand.Read never returns an error, it aborts the program instead.
	rand.Read(b)
	return "rtlpager_" + hex.EncodeToString(b)
}

// NewMQTTSender connects to broker, e.g. tcp://localhost:1883. The client
// reconnects on its own after the initial connection succeeds.
func NewMQTTSender(broker, topic string, timeout time.Duration) (*MQTTSender, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if topic == "" {
		topic = DefaultTopic
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID()).
		SetConnectTimeout(timeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, errors.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "mqtt connect to %s", broker)
	}

	return &MQTTSender{client: client, topic: topic}, nil
}

func (s *MQTTSender) Name() string {
	return "MQTT"
}

func (s *MQTTSender) Send(ctx context.Context, msg parse.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}

	token := s.client.Publish(s.topic, 0, false, payload)

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "publish")
	}
}

func (s *MQTTSender) Close() {
	s.client.Disconnect(250)
}
