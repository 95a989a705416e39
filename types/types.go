package types

// ---- Phase ----

// Phase is the scheduler's conceptual state. There is exactly one Phase
// variable in the system (owned by the scheduler core); the relay bridge
// only ever observes it through commands derived from it.
type Phase uint8

const (
	PhaseDark Phase = iota
	PhaseLight
)

func (p Phase) String() string {
	if p == PhaseLight {
		return "light"
	}
	return "dark"
}

// On reports whether the relay coil is energised during this phase.
func (p Phase) On() bool { return p == PhaseLight }

// Next returns the other phase.
func (p Phase) Next() Phase {
	if p == PhaseLight {
		return PhaseDark
	}
	return PhaseLight
}

// PhaseFor maps the configured "start on" flag to the initial phase.
func PhaseFor(on bool) Phase {
	if on {
		return PhaseLight
	}
	return PhaseDark
}

// ---- Schedule configuration (config/sched) ----

// Strategy selects how the hardware timer is used.
type Strategy string

const (
	// StrategyHourly arms one fixed-period timer and counts ticks until the
	// phase target is reached.
	StrategyHourly Strategy = "hourly"
	// StrategyInterval reprograms the timer period to the next phase's
	// duration on every flip; each tick is a phase boundary.
	StrategyInterval Strategy = "interval"
)

// SchedConfig is the strictly-typed payload published on config/sched.
// Durations are milliseconds to suit TinyGo and the embedded JSON.
type SchedConfig struct {
	LightMs  uint32   `json:"light_ms"`
	DarkMs   uint32   `json:"dark_ms"`
	TickMs   uint32   `json:"tick_ms,omitempty"` // hourly strategy base tick
	StartOn  bool     `json:"start_on"`
	Strategy Strategy `json:"strategy,omitempty"`
}

// ---- Relay configuration (config/relay) ----

// RelayConfig is the strictly-typed payload published on config/relay.
type RelayConfig struct {
	Backend  string `json:"backend"` // "serialrelay" | "pcf8574"
	DataPin  int    `json:"data_pin"`
	ClockPin int    `json:"clock_pin"`
	Modules  int    `json:"modules"`             // chained modules, 1..10
	Channel  int    `json:"channel"`             // scheduled channel, 1..4
	Module   int    `json:"module"`              // module carrying the channel
	SettleMs int    `json:"settle_ms,omitempty"` // delay between startup OFF commands
	I2CAddr  int    `json:"i2c_addr,omitempty"`  // pcf8574 backend only
	I2CBus   string `json:"i2c_bus,omitempty"`
}

// ---- Relay control payloads ----

// RelaySet is the payload for relay/control/set.
type RelaySet struct {
	Channel int  `json:"channel"`
	Module  int  `json:"module"`
	On      bool `json:"on"`
}

// RelayValue is the retained payload on relay/<module>/<channel>/value.
type RelayValue struct {
	On   bool  `json:"on"`
	TsMs int64 `json:"ts_ms"`
}

// ---- Scheduler events ----

// FlipEvent is published (non-retained) on sched/flip at every phase change.
type FlipEvent struct {
	Phase string `json:"phase"` // phase being entered
	Seq   uint32 `json:"seq"`   // flip counter since boot
	TsMs  int64  `json:"ts_ms"`
}

// SchedStatus is the reply payload for sched/status requests and the
// retained sched/state document.
type SchedStatus struct {
	Phase    string `json:"phase"`
	Flips    uint32 `json:"flips"`
	Drops    uint32 `json:"drops"` // commands lost on a full queue
	Armed    bool   `json:"armed"`
	Strategy string `json:"strategy"`
	TsMs     int64  `json:"ts_ms"`
}

// ---- Telemetry configuration (config/telemetry) ----

type TelemetryConfig struct {
	Broker   string `json:"broker"` // empty disables the uplink
	Topic    string `json:"topic,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
