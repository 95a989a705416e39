//go:build linux && !tinygo

// growlightd runs the grow light schedule on a Linux host, driving the relay
// chain through the GPIO character device. A goroutine timer stands in for
// the hardware interrupt timer; everything above it is the same code the
// Pico firmware runs.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"growlight-go/bus"
	"growlight-go/errcode"
	"growlight-go/platform"
	"growlight-go/services/config"
	"growlight-go/services/console"
	"growlight-go/services/heartbeat"
	"growlight-go/services/relay"
	"growlight-go/services/sched"
	"growlight-go/services/telemetry"
	"growlight-go/types"
)

const version = "v1.0.0"

func main() {
	device := flag.String("device", "host", "embedded config profile")
	chipName := flag.String("gpiochip", "gpiochip0", "GPIO character device")
	flag.Parse()

	console.Banner("growlightd", version)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b := bus.NewBus(8)

	// Config first so the retained documents are already on the bus when the
	// other services subscribe.
	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, *device)
	config.NewConfigService().Start(cfgCtx, b.NewConnection("config"))

	boot := b.NewConnection("boot")
	defer boot.Disconnect()

	var schedRaw types.SchedConfig
	if !waitConfig(ctx, boot, "sched", func(p any) bool {
		v, ok := p.(types.SchedConfig)
		schedRaw = v
		return ok
	}) {
		fatal("no config/sched for device " + *device)
	}
	var relayRaw types.RelayConfig
	if !waitConfig(ctx, boot, "relay", func(p any) bool {
		v, ok := p.(types.RelayConfig)
		relayRaw = v
		return ok
	}) {
		fatal("no config/relay for device " + *device)
	}

	schedCfg, err := sched.ConfigFrom(schedRaw)
	if err != nil {
		fatal("bad sched config: " + err.Error())
	}
	relayCfg, err := relay.ConfigFrom(relayRaw)
	if err != nil {
		fatal("bad relay config: " + err.Error())
	}

	var pins platform.PinFactory
	if chip, err := platform.NewChipPinFactory(*chipName); err != nil {
		println("Warn: gpio chip unavailable (" + err.Error() + "); using fake pins")
		pins = platform.NewFakePinFactory()
	} else {
		defer chip.Close()
		pins = chip
	}

	var backend relay.Backend
	switch relayRaw.Backend {
	case "", "serialrelay":
		backend, err = relay.NewSerialBackend(pins, relayRaw.DataPin, relayRaw.ClockPin, relayCfg.Modules)
		if err != nil {
			fatal("relay backend: " + err.Error())
		}
	default:
		// pcf8574 needs an I2C bus; that backend is wired in the firmware build.
		e := &errcode.E{C: errcode.Unsupported, Op: "relay.backend", Msg: relayRaw.Backend}
		fatal(e.Error())
	}

	scheduler, err := sched.New(schedCfg, sched.NewHostTimer())
	if err != nil {
		fatal("scheduler: " + err.Error())
	}
	bridge := relay.NewBridge(relayCfg, backend, types.PhaseFor(schedCfg.StartOn), scheduler.Commands())

	go scheduler.Run(ctx, b.NewConnection("sched"))
	go bridge.Run(ctx, b.NewConnection("relay"))

	if err := (&console.Service{}).Start(ctx, b.NewConnection("console")); err != nil {
		println("Warn: console:", err.Error())
	}
	if err := (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat")); err != nil {
		println("Warn: heartbeat:", err.Error())
	}
	if err := telemetry.NewService(nil).Start(ctx, b.NewConnection("telemetry")); err != nil {
		println("Warn: telemetry:", err.Error())
	}

	<-ctx.Done()
	println("Info: growlightd stopping")
}

// waitConfig blocks until the retained config/<key> document arrives and
// accept approves it.
func waitConfig(ctx context.Context, conn *bus.Connection, key string, accept func(any) bool) bool {
	sub := conn.Subscribe(bus.T("config", key))
	defer conn.Unsubscribe(sub)

	deadline := time.NewTimer(5 * time.Second)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case msg := <-sub.Channel():
			if accept(msg.Payload) {
				return true
			}
		}
	}
}

func fatal(msg string) {
	println("Error:", msg)
	os.Exit(1)
}
