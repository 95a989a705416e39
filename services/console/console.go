// Package console prints human-readable traces of scheduler and relay
// activity to the serial console. It only observes the bus; disabling it
// changes nothing about the schedule.
package console

import (
	"context"
	"time"

	"growlight-go/bus"
	"growlight-go/types"
)

var (
	topicConfigConsole = bus.Topic{"config", "console"}
	topicFlip          = bus.Topic{"sched", "flip"}
	topicSchedState    = bus.Topic{"sched", "state"}
	topicRelayValues   = bus.Topic{"relay", "+", "+", "value"}
)

// Banner prints the boot banner, firmware-style.
func Banner(name, version string) {
	println("")
	println(name, version)
	println("--------------------------------")
}

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigConsole)
	defer conn.Unsubscribe(cfgSub)
	flipSub := conn.Subscribe(topicFlip)
	defer conn.Unsubscribe(flipSub)
	stateSub := conn.Subscribe(topicSchedState)
	defer conn.Unsubscribe(stateSub)
	valueSub := conn.Subscribe(topicRelayValues)
	defer conn.Unsubscribe(valueSub)

	enabled := true

	for {
		select {
		case <-ctx.Done():
			println("Info: console service stopping")
			return

		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if v, ok := m["enabled"].(bool); ok {
					enabled = v
					println("Info: console enabled:", enabled)
				}
			}

		case msg := <-flipSub.Channel():
			if !enabled {
				continue
			}
			if ev, ok := msg.Payload.(types.FlipEvent); ok {
				println("Info:", stamp(), "phase ->", ev.Phase, "(flip", ev.Seq, ")")
			}

		case msg := <-stateSub.Channel():
			if !enabled {
				continue
			}
			if m, ok := msg.Payload.(map[string]any); ok {
				if errVal, ok := m["error"]; ok {
					println("Warn:", stamp(), "scheduler reported:", toStr(errVal))
				}
			}

		case msg := <-valueSub.Channel():
			if !enabled {
				continue
			}
			if v, ok := msg.Payload.(types.RelayValue); ok && msg.Topic.Len() == 4 {
				module, _ := msg.Topic.At(1).(int)
				channel, _ := msg.Topic.At(2).(int)
				println("Info:", stamp(), "relay", module, "/", channel, "=", onOff(v.On))
			}
		}
	}
}

// Start the console service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

func stamp() string { return time.Now().Format("15:04:05") }

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func toStr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "?"
}
