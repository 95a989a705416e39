// config/config_test.go
package config

import (
	"context"
	"testing"
	"time"

	"growlight-go/bus"
	"growlight-go/types"
)

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	// Override lookup for this test.
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "pico" {
			return nil, false
		}
		return []byte(`{
			"sched": {"light_ms": 7200000, "dark_ms": 3600000, "start_on": false, "strategy": "interval"},
			"relay": {"backend": "serialrelay", "data_pin": 2, "clock_pin": 3, "modules": 2, "channel": 4, "module": 2},
			"console": {"enabled": true}
		}`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService()

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	svc.Start(ctx, conn)

	// Subscribe; retained messages should arrive immediately.
	sub := conn.Subscribe(bus.Topic{configPrefix, "#"})

	wantCount := 3
	got := map[string]any{}

	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < wantCount && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if m.Topic.Len() < 2 {
				t.Fatalf("unexpected topic length: %#v", m.Topic)
			}
			key, ok := m.Topic.At(1).(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic.At(1))
			}
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != wantCount {
		t.Fatalf("expected %d retained messages, got %d (%v)", wantCount, len(got), got)
	}

	// Known keys arrive strictly typed.
	sched, ok := got["sched"].(types.SchedConfig)
	if !ok {
		t.Fatalf("sched payload = %T, want SchedConfig", got["sched"])
	}
	if sched.LightMs != 7_200_000 || sched.DarkMs != 3_600_000 || sched.StartOn ||
		sched.Strategy != types.StrategyInterval {
		t.Errorf("sched = %+v", sched)
	}

	relay, ok := got["relay"].(types.RelayConfig)
	if !ok {
		t.Fatalf("relay payload = %T, want RelayConfig", got["relay"])
	}
	if relay.Backend != "serialrelay" || relay.DataPin != 2 || relay.ClockPin != 3 ||
		relay.Modules != 2 || relay.Channel != 4 || relay.Module != 2 {
		t.Errorf("relay = %+v", relay)
	}

	// Unknown keys pass through as decoded JSON.
	console, ok := got["console"].(map[string]any)
	if !ok {
		t.Fatalf("console payload = %T, want map", got["console"])
	}
	if console["enabled"] != true {
		t.Errorf("console = %#v", console)
	}
}

func TestConfig_MissingDeviceDoesNotPublish(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-config")
	svc := NewConfigService()

	// No device ID in context.
	svc.Start(context.Background(), conn)

	sub := conn.Subscribe(bus.Topic{configPrefix, "#"})
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected config message: %#v", m.Topic)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConfig_DefaultDevicesDecode(t *testing.T) {
	for _, device := range []string{"pico", "host"} {
		raw, ok := EmbeddedConfigLookup(device)
		if !ok {
			t.Fatalf("no embedded config for %q", device)
		}
		b := bus.NewBus(16)
		conn := b.NewConnection("test-config")
		ctx := context.WithValue(context.Background(), CtxDeviceKey, device)
		if err := NewConfigService().publishConfig(ctx, conn); err != nil {
			t.Fatalf("publishConfig(%s): %v (raw %d bytes)", device, err, len(raw))
		}

		sub := conn.Subscribe(bus.Topic{configPrefix, "sched"})
		select {
		case m := <-sub.Channel():
			sc, ok := m.Payload.(types.SchedConfig)
			if !ok {
				t.Fatalf("%s: sched payload = %T", device, m.Payload)
			}
			if sc.LightMs == 0 || sc.DarkMs == 0 {
				t.Errorf("%s: zero durations in default config: %+v", device, sc)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: no retained config/sched", device)
		}
	}
}
