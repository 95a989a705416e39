package config

import (
	"context"
	"errors"

	"growlight-go/bus"
	"growlight-go/types"

	"github.com/andreyvit/tinyjson"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// typedValue maps the generic decoded value for a known key into its strict
// payload type. Unknown keys pass through as decoded JSON so new consumers
// do not require a config service change.
func typedValue(key string, v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	switch key {
	case "sched":
		return types.SchedConfig{
			LightMs:  uint32(numField(m, "light_ms")),
			DarkMs:   uint32(numField(m, "dark_ms")),
			TickMs:   uint32(numField(m, "tick_ms")),
			StartOn:  boolField(m, "start_on"),
			Strategy: types.Strategy(strField(m, "strategy")),
		}
	case "relay":
		return types.RelayConfig{
			Backend:  strField(m, "backend"),
			DataPin:  int(numField(m, "data_pin")),
			ClockPin: int(numField(m, "clock_pin")),
			Modules:  int(numField(m, "modules")),
			Channel:  int(numField(m, "channel")),
			Module:   int(numField(m, "module")),
			SettleMs: int(numField(m, "settle_ms")),
			I2CAddr:  int(numField(m, "i2c_addr")),
			I2CBus:   strField(m, "i2c_bus"),
		}
	case "telemetry":
		return types.TelemetryConfig{
			Broker:   strField(m, "broker"),
			Topic:    strField(m, "topic"),
			ClientID: strField(m, "client_id"),
		}
	default:
		return v
	}
}

func numField(m map[string]any, key string) float64 {
	switch n := m[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// publishConfig reads the device config from embedded data and publishes
// each top-level key as a retained message on config/<key>.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	r := tinyjson.Raw(raw)
	val := r.Value() // should be a map[string]any
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return errors.New("embedded config is not a JSON object")
	}

	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  typedValue(k, v),
			Retained: true,
		})
	}

	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("Error: config:", err.Error())
		}
	}()
}
