// services/sched/sched.go
package sched

import (
	"context"
	"sync/atomic"
	"time"

	"growlight-go/bus"
	"growlight-go/errcode"
	"growlight-go/types"
	"growlight-go/x/mathx"
	"growlight-go/x/timex"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

const (
	// maxTickMs keeps a misconfigured base tick within one hour.
	maxTickMs = 3_600_000

	defaultQueueSize = 8
)

type Config struct {
	Light    time.Duration
	Dark     time.Duration
	Tick     time.Duration // hourly strategy base period
	Strategy types.Strategy
	StartOn  bool

	QueueSize int // command queue depth
}

// ConfigFrom converts the bus payload into a validated Config.
func ConfigFrom(tc types.SchedConfig) (Config, error) {
	if tc.LightMs == 0 || tc.DarkMs == 0 {
		return Config{}, &errcode.E{C: errcode.InvalidDuration, Op: "sched.config",
			Msg: "light and dark durations must be positive"}
	}
	strategy := tc.Strategy
	if strategy == "" {
		strategy = types.StrategyHourly
	}
	if strategy != types.StrategyHourly && strategy != types.StrategyInterval {
		return Config{}, &errcode.E{C: errcode.InvalidPayload, Op: "sched.config",
			Msg: "unknown strategy: " + string(strategy)}
	}
	tickMs := tc.TickMs
	if tickMs == 0 {
		tickMs = maxTickMs
	}
	return Config{
		Light:    timex.FromMs(tc.LightMs),
		Dark:     timex.FromMs(tc.DarkMs),
		Tick:     timex.FromMs(mathx.Clamp(tickMs, 1, uint32(maxTickMs))),
		Strategy: strategy,
		StartOn:  tc.StartOn,
	}, nil
}

func (c Config) validate() error {
	if c.Light <= 0 || c.Dark <= 0 {
		return &errcode.E{C: errcode.InvalidDuration, Op: "sched.config"}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

// Command asks the relay bridge to drive the scheduled channel to the state
// of the phase just entered. Commands are produced in the timer callback and
// consumed by the bridge outside interrupt context.
type Command struct {
	Phase types.Phase
	On    bool
	Seq   uint32 // flip counter since boot
}

// -----------------------------------------------------------------------------
// Scheduler
// -----------------------------------------------------------------------------

// Scheduler owns the phase state machine and the timer. The timer callback
// only advances the state machine and enqueues work; everything that may
// block (bit-bang transmission, timer reprogramming, bus publishing) happens
// on the service loop or in the relay bridge.
type Scheduler struct {
	cfg   Config
	timer Timer
	cyc   cycle

	slot   syncSlot
	notify chan struct{}
	cmdQ   chan Command

	// Written in the timer callback, read anywhere.
	phaseW atomic.Uint32
	flips  atomic.Uint32
	drops  atomic.Uint32

	armed bool
}

func New(cfg Config, timer Timer) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if timer == nil {
		return nil, &errcode.E{C: errcode.ArmingFailed, Op: "sched.new", Msg: "nil timer"}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	initial := types.PhaseFor(cfg.StartOn)
	var cyc cycle
	if cfg.Strategy == types.StrategyInterval {
		cyc = newIntervalCycle(initial)
	} else {
		cyc = newHourlyCycle(initial, cfg.Light, cfg.Dark, cfg.Tick)
	}

	s := &Scheduler{
		cfg:    cfg,
		timer:  timer,
		cyc:    cyc,
		notify: make(chan struct{}, 1),
		cmdQ:   make(chan Command, cfg.QueueSize),
	}
	s.phaseW.Store(uint32(initial))
	return s, nil
}

// Commands is the bridge-facing queue of relay commands.
func (s *Scheduler) Commands() <-chan Command { return s.cmdQ }

// Phase is the phase currently in effect.
func (s *Scheduler) Phase() types.Phase { return types.Phase(s.phaseW.Load()) }

// Flips counts phase changes since boot.
func (s *Scheduler) Flips() uint32 { return s.flips.Load() }

// Drops counts commands lost on a full queue. Dropped commands are not
// retried; the next flip re-commands the relay.
func (s *Scheduler) Drops() uint32 { return s.drops.Load() }

// onTick runs in the timer's context. Short and non-blocking.
func (s *Scheduler) onTick() {
	flipped, now := s.cyc.Tick()
	if !flipped {
		return
	}
	seq := s.flips.Add(1)
	s.phaseW.Store(uint32(now))

	select {
	case s.cmdQ <- Command{Phase: now, On: now.On(), Seq: seq}:
	default:
		s.drops.Add(1) // protect the timer context
	}

	if s.cfg.Strategy == types.StrategyInterval {
		s.slot.put(now)
	}

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// arm initialises and attaches the periodic timer. The initial period is
// the base tick (hourly) or the initial phase's full duration (interval).
func (s *Scheduler) arm() error {
	if err := s.timer.Init(); err != nil {
		return err
	}
	period := s.cfg.Tick
	if s.cfg.Strategy == types.StrategyInterval {
		period = s.periodFor(s.Phase())
	}
	return s.timer.AttachPeriodic(period, s.onTick)
}

func (s *Scheduler) periodFor(p types.Phase) time.Duration {
	if p == types.PhaseLight {
		return s.cfg.Light
	}
	return s.cfg.Dark
}

// resyncTimer consumes the pending flip, if any, and reprograms the timer
// for the phase now running. Calling it with nothing pending is a no-op.
func (s *Scheduler) resyncTimer() error {
	p, ok := s.slot.take()
	if !ok {
		return nil
	}
	return s.timer.SetPeriod(s.periodFor(p))
}

// Status snapshots the scheduler for sched/status replies.
func (s *Scheduler) Status() types.SchedStatus {
	return types.SchedStatus{
		Phase:    s.Phase().String(),
		Flips:    s.Flips(),
		Drops:    s.Drops(),
		Armed:    s.armed,
		Strategy: string(s.cfg.Strategy),
		TsMs:     timex.NowMs(),
	}
}

// -----------------------------------------------------------------------------
// Service loop
// -----------------------------------------------------------------------------

var (
	topicState  = bus.Topic{"sched", "state"}
	topicFlip   = bus.Topic{"sched", "flip"}
	topicStatus = bus.Topic{"sched", "status"}
)

// Run arms the timer and serves until ctx is cancelled. An arming failure
// is published and logged once; the service stays up un-armed, so status
// queries still answer while no cycling occurs.
func (s *Scheduler) Run(ctx context.Context, conn *bus.Connection) {
	statusSub := conn.Subscribe(topicStatus)
	defer conn.Unsubscribe(statusSub)

	if err := s.arm(); err != nil {
		println("Error: sched: timer arming failed:", err.Error())
		s.publishState(conn, err)
	} else {
		s.armed = true
		s.publishState(conn, nil)
	}

	var seenDrops uint32

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.notify:
			// The relay was already commanded through the queue; report the
			// flip even if reprogramming the timer fails afterwards.
			s.publishFlip(conn)
			if d := s.Drops(); d > seenDrops {
				println("Warn: sched:", string(errcode.QueueFull), "- commands dropped:", d-seenDrops)
				seenDrops = d
			}
			if err := s.resyncTimer(); err != nil {
				println("Error: sched: timer resync failed:", err.Error())
				s.publishState(conn, err)
				continue
			}
			s.publishState(conn, nil)

		case msg := <-statusSub.Channel():
			conn.Reply(msg, s.Status(), false)
		}
	}
}

func (s *Scheduler) publishFlip(conn *bus.Connection) {
	conn.Publish(conn.NewMessage(topicFlip, types.FlipEvent{
		Phase: s.Phase().String(),
		Seq:   s.Flips(),
		TsMs:  timex.NowMs(),
	}, false))
}

func (s *Scheduler) publishState(conn *bus.Connection, err error) {
	payload := map[string]any{
		"phase":    s.Phase().String(),
		"flips":    s.Flips(),
		"drops":    s.Drops(),
		"armed":    s.armed,
		"strategy": string(s.cfg.Strategy),
		"light_ms": timex.ToMs(s.cfg.Light),
		"dark_ms":  timex.ToMs(s.cfg.Dark),
		"ts_ms":    timex.NowMs(),
	}
	if err != nil {
		payload["error"] = string(errcode.Of(err))
	}
	conn.Publish(conn.NewMessage(topicState, payload, true))
}
