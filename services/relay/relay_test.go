// services/relay/relay_test.go
package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"growlight-go/bus"
	"growlight-go/services/sched"
	"growlight-go/types"
)

type call struct {
	channel int
	on      bool
	module  int
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeBackend) Set(channel int, on bool, module int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, call{channel, on, module})
	return nil
}

func (f *fakeBackend) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

// startBridge runs a bridge and blocks until its startup sequence has
// finished (signalled by the retained relay/state document).
func startBridge(t *testing.T, b *bus.Bus, be Backend, cfg Config, initial types.Phase, cmds <-chan sched.Command) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	br := NewBridge(cfg, be, initial, cmds)
	go br.Run(ctx, b.NewConnection("relay"))

	watcher := b.NewConnection("watcher")
	defer watcher.Disconnect()
	stateSub := watcher.Subscribe(bus.Topic{"relay", "state"})
	select {
	case <-stateSub.Channel():
	case <-time.After(time.Second):
		cancel()
		t.Fatal("bridge never finished startup")
	}
	return cancel
}

func testConfig() Config {
	return Config{Modules: 2, Channel: 1, Module: 1}
}

func TestBridge_StartupAllOffThenInitialPhase(t *testing.T) {
	be := &fakeBackend{}
	cancel := startBridge(t, bus.NewBus(8), be, testConfig(), types.PhaseLight, nil)
	defer cancel()

	calls := be.snapshot()
	if len(calls) != 9 {
		t.Fatalf("got %d backend calls, want 8 init + 1 initial phase: %v", len(calls), calls)
	}
	i := 0
	for module := 1; module <= 2; module++ {
		for channel := 1; channel <= 4; channel++ {
			want := call{channel, false, module}
			if calls[i] != want {
				t.Fatalf("init call %d = %+v, want %+v", i, calls[i], want)
			}
			i++
		}
	}
	if last := calls[8]; last != (call{1, true, 1}) {
		t.Fatalf("final startup call = %+v, want scheduled channel on", last)
	}
}

func TestBridge_StartupDarkLeavesScheduledChannelOff(t *testing.T) {
	be := &fakeBackend{}
	cancel := startBridge(t, bus.NewBus(8), be, testConfig(), types.PhaseDark, nil)
	defer cancel()

	calls := be.snapshot()
	if last := calls[len(calls)-1]; last != (call{1, false, 1}) {
		t.Fatalf("final startup call = %+v, want scheduled channel off", last)
	}
}

func TestBridge_AppliesSchedulerCommands(t *testing.T) {
	b := bus.NewBus(8)
	be := &fakeBackend{}
	cmds := make(chan sched.Command, 1)
	cancel := startBridge(t, b, be, testConfig(), types.PhaseLight, cmds)
	defer cancel()

	watcher := b.NewConnection("watcher")
	defer watcher.Disconnect()
	valueSub := watcher.Subscribe(bus.Topic{"relay", 1, 1, "value"})

	// Drain the retained value from startup.
	select {
	case <-valueSub.Channel():
	case <-time.After(time.Second):
		t.Fatal("no retained value after startup")
	}

	cmds <- sched.Command{Phase: types.PhaseDark, On: false, Seq: 1}

	select {
	case msg := <-valueSub.Channel():
		v, ok := msg.Payload.(types.RelayValue)
		if !ok {
			t.Fatalf("value payload = %T, want RelayValue", msg.Payload)
		}
		if v.On {
			t.Error("value.On = true after a dark command")
		}
	case <-time.After(time.Second):
		t.Fatal("no value published for the scheduler command")
	}

	calls := be.snapshot()
	if last := calls[len(calls)-1]; last != (call{1, false, 1}) {
		t.Fatalf("last backend call = %+v, want channel 1 off", last)
	}
}

func TestBridge_ManualSetAndRead(t *testing.T) {
	b := bus.NewBus(8)
	be := &fakeBackend{}
	cancel := startBridge(t, b, be, testConfig(), types.PhaseDark, nil)
	defer cancel()

	client := b.NewConnection("client")
	defer client.Disconnect()

	ctx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()

	reply, err := client.RequestWait(ctx,
		client.NewMessage(bus.Topic{"relay", "control", "set"}, types.RelaySet{Channel: 3, Module: 2, On: true}, false))
	if err != nil {
		t.Fatalf("set request: %v", err)
	}
	if ok, _ := reply.Payload.(types.OKReply); !ok.OK {
		t.Fatalf("set reply = %+v, want ok", reply.Payload)
	}

	calls := be.snapshot()
	if last := calls[len(calls)-1]; last != (call{3, true, 2}) {
		t.Fatalf("backend call = %+v, want channel 3 module 2 on", last)
	}

	reply, err = client.RequestWait(ctx,
		client.NewMessage(bus.Topic{"relay", "control", "read"}, types.RelaySet{Channel: 3, Module: 2}, false))
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	v, ok := reply.Payload.(types.RelayValue)
	if !ok || !v.On {
		t.Fatalf("read reply = %+v, want on", reply.Payload)
	}
}

func TestBridge_ManualSetFromDecodedJSON(t *testing.T) {
	b := bus.NewBus(8)
	be := &fakeBackend{}
	cancel := startBridge(t, b, be, testConfig(), types.PhaseDark, nil)
	defer cancel()

	client := b.NewConnection("client")
	defer client.Disconnect()
	ctx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()

	payload := map[string]any{"channel": float64(2), "on": true}
	reply, err := client.RequestWait(ctx,
		client.NewMessage(bus.Topic{"relay", "control", "set"}, payload, false))
	if err != nil {
		t.Fatalf("set request: %v", err)
	}
	if ok, _ := reply.Payload.(types.OKReply); !ok.OK {
		t.Fatalf("set reply = %+v, want ok", reply.Payload)
	}

	calls := be.snapshot()
	if last := calls[len(calls)-1]; last != (call{2, true, 1}) {
		t.Fatalf("backend call = %+v, want channel 2 module 1 (defaulted) on", last)
	}
}

func TestBridge_InvalidControlPayloadRejected(t *testing.T) {
	b := bus.NewBus(8)
	be := &fakeBackend{}
	cancel := startBridge(t, b, be, testConfig(), types.PhaseDark, nil)
	defer cancel()

	client := b.NewConnection("client")
	defer client.Disconnect()
	ctx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()

	reply, err := client.RequestWait(ctx,
		client.NewMessage(bus.Topic{"relay", "control", "set"}, "bogus", false))
	if err != nil {
		t.Fatalf("set request: %v", err)
	}
	e, ok := reply.Payload.(types.ErrorReply)
	if !ok || e.OK {
		t.Fatalf("reply = %+v, want error reply", reply.Payload)
	}
	if e.Error != "invalid_payload" {
		t.Errorf("error = %q, want invalid_payload", e.Error)
	}
}

func TestConfigFrom_Validation(t *testing.T) {
	cfg, err := ConfigFrom(types.RelayConfig{})
	if err != nil {
		t.Fatalf("ConfigFrom(zero): %v", err)
	}
	if cfg.Modules != 1 || cfg.Channel != 1 || cfg.Module != 1 || cfg.Settle != time.Second {
		t.Errorf("defaults = %+v", cfg)
	}

	if _, err := ConfigFrom(types.RelayConfig{Modules: 11}); err == nil {
		t.Error("modules out of range accepted")
	}
	if _, err := ConfigFrom(types.RelayConfig{Modules: 2, Module: 3}); err == nil {
		t.Error("module beyond chain accepted")
	}
}
