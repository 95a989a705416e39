package heartbeat

import (
	"context"
	"time"

	"growlight-go/bus"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicSchedState      = bus.Topic{"sched", "state"}
)

const defaultInterval = 60 * time.Second

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	stateSub := conn.Subscribe(topicSchedState)
	defer conn.Unsubscribe(stateSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	phase := "unknown"

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case t := <-tick.C:
			println("Info:", t.Format("15:04:05"), "alive, phase", phase)
		case msg := <-stateSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if p, ok := m["phase"].(string); ok {
					phase = p
				}
			}
		case msg := <-cfgSub.Channel():
			if iv, ok := IntervalFrom(msg.Payload); ok {
				tick.Reset(iv)
				println("Info: heartbeat interval set to", int64(iv/time.Second), "seconds")
			}
		}
	}
}

// IntervalFrom extracts the heartbeat interval (seconds) from a
// config/heartbeat payload. Zero or missing intervals are rejected.
func IntervalFrom(payload any) (time.Duration, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return 0, false
	}
	switch iv := m["interval"].(type) {
	case float64:
		if iv > 0 {
			return time.Duration(iv * float64(time.Second)), true
		}
	case int:
		if iv > 0 {
			return time.Duration(iv) * time.Second, true
		}
	}
	return 0, false
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
