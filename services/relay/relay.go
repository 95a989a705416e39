// services/relay/relay.go

// The relay bridge is the single writer to the relay hardware. It consumes
// scheduler commands from a queue and manual control messages from the bus,
// so the slow bit-banged transmission never runs in the timer's context.
package relay

import (
	"context"
	"time"

	"growlight-go/bus"
	"growlight-go/drivers/serialrelay"
	"growlight-go/errcode"
	"growlight-go/services/sched"
	"growlight-go/types"
	"growlight-go/x/mathx"
	"growlight-go/x/timex"
)

const defaultSettle = time.Second

type Config struct {
	Modules int // chained modules
	Channel int // channel the schedule drives
	Module  int // module carrying that channel
	Settle  time.Duration
}

// ConfigFrom converts the bus payload into a validated Config.
func ConfigFrom(tc types.RelayConfig) (Config, error) {
	cfg := Config{
		Modules: tc.Modules,
		Channel: tc.Channel,
		Module:  tc.Module,
		Settle:  time.Duration(tc.SettleMs) * time.Millisecond,
	}
	if cfg.Modules == 0 {
		cfg.Modules = 1
	}
	if cfg.Channel == 0 {
		cfg.Channel = 1
	}
	if cfg.Module == 0 {
		cfg.Module = 1
	}
	if tc.SettleMs == 0 {
		cfg.Settle = defaultSettle
	}
	if !mathx.Between(cfg.Modules, 1, serialrelay.MaxModules) {
		return Config{}, &errcode.E{C: errcode.InvalidPayload, Op: "relay.config", Msg: "modules out of range"}
	}
	if !mathx.Between(cfg.Module, 1, cfg.Modules) {
		return Config{}, &errcode.E{C: errcode.UnknownModule, Op: "relay.config"}
	}
	if cfg.Channel < 1 {
		return Config{}, &errcode.E{C: errcode.UnknownChannel, Op: "relay.config"}
	}
	return cfg, nil
}

type chanKey struct{ module, channel int }

// Bridge owns a Backend and a shadow of every channel it has driven.
type Bridge struct {
	cfg     Config
	be      Backend
	initial types.Phase
	cmds    <-chan sched.Command

	shadow map[chanKey]bool
}

// NewBridge wires the backend to the scheduler's command queue. cmds may be
// nil when running without a scheduler (manual control only).
func NewBridge(cfg Config, be Backend, initial types.Phase, cmds <-chan sched.Command) *Bridge {
	return &Bridge{
		cfg:     cfg,
		be:      be,
		initial: initial,
		cmds:    cmds,
		shadow:  map[chanKey]bool{},
	}
}

var (
	topicSet   = bus.Topic{"relay", "control", "set"}
	topicRead  = bus.Topic{"relay", "control", "read"}
	topicState = bus.Topic{"relay", "state"}
)

// Run initialises the hardware to a known state, applies the initial phase,
// then serves commands until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context, conn *bus.Connection) {
	setSub := conn.Subscribe(topicSet)
	defer conn.Unsubscribe(setSub)
	readSub := conn.Subscribe(topicRead)
	defer conn.Unsubscribe(readSub)

	if !b.startup(ctx, conn) {
		return // cancelled mid-init
	}

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-b.cmds:
			b.applyScheduled(conn, cmd.On)

		case msg := <-setSub.Channel():
			b.handleSet(conn, msg)

		case msg := <-readSub.Channel():
			b.handleRead(conn, msg)
		}
	}
}

// startup drives every channel of every module off, pacing the commands so
// chained modules have time to latch, then applies the initial phase to the
// scheduled channel. Returns false if cancelled.
func (b *Bridge) startup(ctx context.Context, conn *bus.Connection) bool {
	for module := 1; module <= b.cfg.Modules; module++ {
		for channel := 1; channel <= serialrelay.ChannelsPerModule; channel++ {
			if err := b.set(conn, channel, false, module); err != nil {
				println("Error: relay: init off failed:", err.Error())
			}
			if !sleepCtx(ctx, b.cfg.Settle) {
				return false
			}
		}
	}
	b.applyScheduled(conn, b.initial.On())
	return true
}

// applyScheduled drives the scheduled channel and refreshes relay/state.
func (b *Bridge) applyScheduled(conn *bus.Connection, on bool) {
	if err := b.set(conn, b.cfg.Channel, on, b.cfg.Module); err != nil {
		println("Error: relay: set failed:", err.Error())
		return
	}
	conn.Publish(conn.NewMessage(topicState, map[string]any{
		"scheduled_on": on,
		"module":       b.cfg.Module,
		"channel":      b.cfg.Channel,
		"ts_ms":        timex.NowMs(),
	}, true))
}

// set drives one channel and, on success, updates the shadow and the
// retained relay/<module>/<channel>/value document.
func (b *Bridge) set(conn *bus.Connection, channel int, on bool, module int) error {
	if b.be == nil {
		return errcode.NoBackend
	}
	if err := b.be.Set(channel, on, module); err != nil {
		return err
	}
	b.shadow[chanKey{module, channel}] = on
	conn.Publish(conn.NewMessage(
		bus.Topic{"relay", module, channel, "value"},
		types.RelayValue{On: on, TsMs: timex.NowMs()},
		true,
	))
	return nil
}

func (b *Bridge) handleSet(conn *bus.Connection, msg *bus.Message) {
	req, err := setFrom(msg.Payload)
	if err != nil {
		replyErr(conn, msg, err)
		return
	}
	if err := b.set(conn, req.Channel, req.On, req.Module); err != nil {
		replyErr(conn, msg, err)
		return
	}
	replyOK(conn, msg)
}

func (b *Bridge) handleRead(conn *bus.Connection, msg *bus.Message) {
	req, err := setFrom(msg.Payload)
	if err != nil {
		replyErr(conn, msg, err)
		return
	}
	on, ok := b.shadow[chanKey{req.Module, req.Channel}]
	if !ok {
		replyErr(conn, msg, errcode.UnknownChannel)
		return
	}
	if msg.ReplyTo != nil {
		conn.Reply(msg, types.RelayValue{On: on, TsMs: timex.NowMs()}, false)
	}
}

// setFrom accepts the typed payload or its decoded-JSON map form.
func setFrom(p any) (types.RelaySet, error) {
	switch v := p.(type) {
	case types.RelaySet:
		if v.Module == 0 {
			v.Module = 1
		}
		if v.Channel < 1 {
			return types.RelaySet{}, errcode.UnknownChannel
		}
		return v, nil
	case map[string]any:
		req := types.RelaySet{
			Channel: intField(v, "channel"),
			Module:  intField(v, "module"),
		}
		if on, ok := v["on"].(bool); ok {
			req.On = on
		}
		return setFrom(req)
	default:
		return types.RelaySet{}, errcode.InvalidPayload
	}
}

func intField(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func replyOK(conn *bus.Connection, req *bus.Message) {
	if req.ReplyTo == nil {
		return
	}
	conn.Reply(req, types.OKReply{OK: true}, false)
}

func replyErr(conn *bus.Connection, req *bus.Message, err error) {
	println("Error: relay:", err.Error())
	if req.ReplyTo == nil {
		return
	}
	conn.Reply(req, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
}

// sleepCtx sleeps for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
