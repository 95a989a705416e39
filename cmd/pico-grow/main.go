//go:build rp2040 || rp2350

// pico-grow is the Raspberry Pi Pico firmware build of the grow light
// scheduler. Flip traces are mirrored on UART1 so a bench logger can record
// the cycle without USB attached.
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"growlight-go/bus"
	"growlight-go/platform"
	"growlight-go/services/config"
	"growlight-go/services/console"
	"growlight-go/services/heartbeat"
	"growlight-go/services/relay"
	"growlight-go/services/sched"
	"growlight-go/types"
)

const version = "v1.0.0"

var uart = uartx.UART1

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	console.Banner("pico-grow", version)

	ctx := context.Background()
	b := bus.NewBus(4)

	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, "pico")
	config.NewConfigService().Start(cfgCtx, b.NewConnection("config"))

	boot := b.NewConnection("boot")

	var schedRaw types.SchedConfig
	var relayRaw types.RelayConfig
	waitTyped(boot, "sched", func(p any) bool { v, ok := p.(types.SchedConfig); schedRaw = v; return ok })
	waitTyped(boot, "relay", func(p any) bool { v, ok := p.(types.RelayConfig); relayRaw = v; return ok })

	schedCfg, err := sched.ConfigFrom(schedRaw)
	if err != nil {
		fatal("bad sched config: " + err.Error())
	}
	relayCfg, err := relay.ConfigFrom(relayRaw)
	if err != nil {
		fatal("bad relay config: " + err.Error())
	}

	pins := platform.NewMachinePinFactory()
	backend := newBackend(pins, relayRaw, relayCfg)

	scheduler, err := sched.New(schedCfg, sched.NewHostTimer())
	if err != nil {
		fatal("scheduler: " + err.Error())
	}
	bridge := relay.NewBridge(relayCfg, backend, types.PhaseFor(schedCfg.StartOn), scheduler.Commands())

	go scheduler.Run(ctx, b.NewConnection("sched"))
	go bridge.Run(ctx, b.NewConnection("relay"))
	_ = (&console.Service{}).Start(ctx, b.NewConnection("console"))
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))

	startUARTTrace(b.NewConnection("uart-trace"))

	select {} // keep running
}

func newBackend(pins platform.PinFactory, raw types.RelayConfig, cfg relay.Config) relay.Backend {
	switch raw.Backend {
	case "pcf8574":
		i2c := machine.I2C0
		if err := i2c.Configure(machine.I2CConfig{}); err != nil {
			fatal("i2c configure: " + err.Error())
		}
		be, err := relay.NewPCF8574Backend(i2c, uint16(raw.I2CAddr))
		if err != nil {
			fatal("pcf8574 backend: " + err.Error())
		}
		return be
	default:
		be, err := relay.NewSerialBackend(pins, raw.DataPin, raw.ClockPin, cfg.Modules)
		if err != nil {
			fatal("serial backend: " + err.Error())
		}
		return be
	}
}

// waitTyped blocks until the retained config document arrives. Config is
// embedded, so a missing key is a build error, not a runtime race.
func waitTyped(conn *bus.Connection, key string, accept func(any) bool) {
	sub := conn.Subscribe(bus.T("config", key))
	defer conn.Unsubscribe(sub)
	for msg := range sub.Channel() {
		if accept(msg.Payload) {
			return
		}
	}
}

// startUARTTrace mirrors flip events on UART1, one line per flip.
func startUARTTrace(conn *bus.Connection) {
	if err := uart.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       uartx.UART1_TX_PIN,
		RX:       uartx.UART1_RX_PIN,
	}); err != nil {
		println("Warn: uart trace disabled: configure failed")
		return
	}

	sub := conn.Subscribe(bus.Topic{"sched", "flip"})
	go func() {
		for msg := range sub.Channel() {
			ev, ok := msg.Payload.(types.FlipEvent)
			if !ok {
				continue
			}
			uartWriteString("flip ")
			uartWriteInt(int(ev.Seq))
			uartWriteString(" ")
			uartWriteString(ev.Phase)
			uartWriteString("\r\n")
		}
	}()
}

// --- helpers (no fmt) ---

func uartWriteString(s string) {
	_, _ = uart.Write([]byte(s))
}

func uartWriteInt(n int) {
	if n == 0 {
		uartWriteString("0")
		return
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	_, _ = uart.Write(buf[i:])
}

func fatal(msg string) {
	println("Error:", msg)
	for {
		time.Sleep(time.Hour)
	}
}
