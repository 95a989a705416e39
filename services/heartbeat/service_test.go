// services/heartbeat/service_test.go
package heartbeat

import (
	"context"
	"testing"
	"time"

	"growlight-go/bus"
)

func TestIntervalFrom(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		want    time.Duration
		ok      bool
	}{
		{"decoded json number", map[string]any{"interval": float64(2)}, 2 * time.Second, true},
		{"int number", map[string]any{"interval": 30}, 30 * time.Second, true},
		{"fractional seconds", map[string]any{"interval": 0.5}, 500 * time.Millisecond, true},
		{"zero rejected", map[string]any{"interval": float64(0)}, 0, false},
		{"negative rejected", map[string]any{"interval": -1}, 0, false},
		{"missing key", map[string]any{}, 0, false},
		{"not a map", "bogus", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := IntervalFrom(tc.payload)
			if ok != tc.ok || got != tc.want {
				t.Errorf("IntervalFrom(%v) = (%v, %v), want (%v, %v)",
					tc.payload, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestHeartbeat_ConsumesConfigAndState(t *testing.T) {
	b := bus.NewBus(4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := (&Service{}).Start(ctx, b.NewConnection("heartbeat")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	feeder := b.NewConnection("feeder")
	defer feeder.Disconnect()
	feeder.Publish(feeder.NewMessage(bus.Topic{"config", "heartbeat"},
		map[string]any{"interval": float64(1)}, true))
	feeder.Publish(feeder.NewMessage(bus.Topic{"sched", "state"},
		map[string]any{"phase": "light"}, true))

	// Both messages must be drained without wedging the loop.
	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)
}
