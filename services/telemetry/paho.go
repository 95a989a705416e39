package telemetry

import (
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"growlight-go/errcode"
	"growlight-go/types"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// PahoPublisher publishes to a real MQTT broker.
type PahoPublisher struct {
	client paho.Client
}

// DialPaho connects to the configured broker. QoS 0; retained flags follow
// the caller.
func DialPaho(cfg types.TelemetryConfig) (Publisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "growlight"
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, &errcode.E{C: errcode.Timeout, Op: "telemetry.connect"}
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return &PahoPublisher{client: client}, nil
}

func (p *PahoPublisher) Publish(topic string, payload []byte, retained bool) error {
	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return &errcode.E{C: errcode.Timeout, Op: "telemetry.publish"}
	}
	return token.Error()
}

func (p *PahoPublisher) Close() error {
	p.client.Disconnect(1000) // milliseconds
	return nil
}
