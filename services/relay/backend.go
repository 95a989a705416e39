// services/relay/backend.go
package relay

import (
	"tinygo.org/x/drivers"

	"growlight-go/drivers/pcf8574"
	"growlight-go/drivers/serialrelay"
	"growlight-go/errcode"
	"growlight-go/platform"
)

// Backend is what the bridge needs from a relay driver. Channels and modules
// are 1-based. Implementations may block for the transmission time; the
// bridge only calls them from its own goroutine.
type Backend interface {
	Set(channel int, on bool, module int) error
}

// -----------------------------------------------------------------------------
// Two-wire serial relay chain
// -----------------------------------------------------------------------------

type SerialBackend struct {
	dev *serialrelay.Device
}

func NewSerialBackend(pins platform.PinFactory, dataPin, clockPin, modules int) (*SerialBackend, error) {
	data, ok := pins.ByNumber(dataPin)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "relay.serial", Msg: "data pin"}
	}
	clock, ok := pins.ByNumber(clockPin)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "relay.serial", Msg: "clock pin"}
	}
	if err := data.ConfigureOutput(false); err != nil {
		return nil, err
	}
	if err := clock.ConfigureOutput(false); err != nil {
		return nil, err
	}
	dev, err := serialrelay.New(data, clock, modules)
	if err != nil {
		return nil, err
	}
	return &SerialBackend{dev: dev}, nil
}

func (b *SerialBackend) Set(channel int, on bool, module int) error {
	st := serialrelay.Off
	if on {
		st = serialrelay.On
	}
	return b.dev.SetRelay(channel, st, module)
}

// -----------------------------------------------------------------------------
// PCF8574 I2C expander board
// -----------------------------------------------------------------------------

// PCF8574Backend drives a single 8-channel expander board. The chain concept
// does not apply; only module 1 exists.
type PCF8574Backend struct {
	dev *pcf8574.Device
}

func NewPCF8574Backend(i2c drivers.I2C, addr uint16) (*PCF8574Backend, error) {
	dev := pcf8574.New(i2c, addr)
	if err := dev.Configure(); err != nil {
		return nil, err
	}
	return &PCF8574Backend{dev: dev}, nil
}

func (b *PCF8574Backend) Set(channel int, on bool, module int) error {
	if module != 1 {
		return &errcode.E{C: errcode.UnknownModule, Op: "relay.pcf8574"}
	}
	return b.dev.SetChannel(channel, on)
}
