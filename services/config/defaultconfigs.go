package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// 18 h light / 6 h dark, lights on at boot, one relay module with the lamp
// on channel 1.
const cfgPico = `{
  "sched": {
      "light_ms": 64800000,
      "dark_ms": 21600000,
      "tick_ms": 3600000,
      "start_on": true,
      "strategy": "hourly"
  },
  "relay": {
      "backend": "serialrelay",
      "data_pin": 7,
      "clock_pin": 8,
      "modules": 1,
      "channel": 1,
      "module": 1,
      "settle_ms": 1000
  },
  "console": {
      "enabled": true
  },
  "heartbeat": {
      "interval": 60
  }
}`

// The host daemon runs the interval strategy so the timer itself carries the
// phase duration, and ships flips to the bench MQTT broker.
const cfgHost = `{
  "sched": {
      "light_ms": 64800000,
      "dark_ms": 21600000,
      "start_on": true,
      "strategy": "interval"
  },
  "relay": {
      "backend": "serialrelay",
      "data_pin": 7,
      "clock_pin": 8,
      "modules": 1,
      "channel": 1,
      "module": 1,
      "settle_ms": 1000
  },
  "telemetry": {
      "broker": "tcp://localhost:1883",
      "topic": "growlight/events",
      "client_id": "growlightd"
  },
  "console": {
      "enabled": true
  },
  "heartbeat": {
      "interval": 60
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
}
