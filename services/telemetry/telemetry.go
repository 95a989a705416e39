// Package telemetry ships scheduler events to an MQTT broker so a grow room
// dashboard can chart the light cycle. The uplink is best-effort: a broker
// outage never disturbs the schedule, and the service reconnects with
// exponential backoff.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"growlight-go/bus"
	"growlight-go/types"
)

const defaultTopic = "growlight/events"

// Publisher is the broker-facing half of the service, kept narrow so tests
// can substitute a fake.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
	Close() error
}

// Dial opens a Publisher for the given config. Injectable for tests.
type Dial func(cfg types.TelemetryConfig) (Publisher, error)

var (
	topicConfig     = bus.Topic{"config", "telemetry"}
	topicFlip       = bus.Topic{"sched", "flip"}
	topicSchedState = bus.Topic{"sched", "state"}
)

type Service struct {
	dial Dial
}

func NewService(dial Dial) *Service {
	if dial == nil {
		dial = DialPaho
	}
	return &Service{dial: dial}
}

// Start launches the uplink in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.run(ctx, conn)
	return nil
}

// run waits for config, then supervises one connection at a time.
func (s *Service) run(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)

	var cfg types.TelemetryConfig
	select {
	case <-ctx.Done():
		return
	case msg := <-cfgSub.Channel():
		c, ok := msg.Payload.(types.TelemetryConfig)
		if !ok {
			println("Error: telemetry: bad config payload")
			return
		}
		cfg = c
	}
	if cfg.Broker == "" {
		println("Info: telemetry disabled (no broker configured)")
		return
	}
	if cfg.Topic == "" {
		cfg.Topic = defaultTopic
	}

	backoff := backoffSeq(250*time.Millisecond, 30*time.Second)
	for {
		if ctx.Err() != nil {
			return
		}
		pub, err := s.dial(cfg)
		if err != nil {
			println("Error: telemetry: connect failed:", err.Error())
			if !sleep(ctx, backoff()) {
				return
			}
			continue
		}
		backoff = backoffSeq(250*time.Millisecond, 30*time.Second)
		s.pump(ctx, conn, pub, cfg.Topic)
		_ = pub.Close()
	}
}

// pump forwards flips and state documents until ctx is cancelled or a
// publish fails (which tears the connection down for a redial).
func (s *Service) pump(ctx context.Context, conn *bus.Connection, pub Publisher, topic string) {
	flipSub := conn.Subscribe(topicFlip)
	defer conn.Unsubscribe(flipSub)
	stateSub := conn.Subscribe(topicSchedState)
	defer conn.Unsubscribe(stateSub)

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-flipSub.Channel():
			if !s.forward(pub, topic, "flip", msg.Payload, false) {
				return
			}

		case msg := <-stateSub.Channel():
			if !s.forward(pub, topic+"/state", "state", msg.Payload, true) {
				return
			}
		}
	}
}

func (s *Service) forward(pub Publisher, topic, kind string, payload any, retained bool) bool {
	raw, err := json.Marshal(payload)
	if err != nil {
		println("Error: telemetry: marshal", kind, "failed:", err.Error())
		return true // not a connection problem
	}
	if err := pub.Publish(topic, raw, retained); err != nil {
		println("Error: telemetry: publish", kind, "failed:", err.Error())
		return false
	}
	return true
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
