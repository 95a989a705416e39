// Package pcf8574 provides a minimal driver for the PCF8574 8-bit I²C I/O
// expander as used on common opto-isolated relay boards.
//
// Design notes (datasheet references):
// • Quasi-bidirectional port; a plain one-byte write sets all eight lines.
// • Default 7-bit address = 0x20 (PCF8574A: 0x38).
// • Relay boards wire the coil drivers active-low: line low = relay on.
//   The driver keeps that inversion internal; callers speak on/off.

package pcf8574

import (
	"errors"

	"tinygo.org/x/drivers"
)

// AddressDefault is the base address with A0..A2 strapped low.
const AddressDefault = 0x20

// Channels per expander; one line per relay.
const Channels = 8

var ErrUnknownChannel = errors.New("pcf8574: channel out of range")

// Device drives one expander. Not safe for concurrent use; the relay
// service is the single writer.
type Device struct {
	bus    drivers.I2C
	addr   uint16
	shadow byte // raw line levels; bit set = line high = relay off
}

// New returns an uninitialised device. Call Configure before use.
func New(bus drivers.I2C, addr uint16) *Device {
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{bus: bus, addr: addr, shadow: 0xFF}
}

// Configure forces every line high, i.e. all relays off.
func (d *Device) Configure() error {
	d.shadow = 0xFF
	return d.write()
}

// SetChannel switches one relay. Channels are 1-based to match the relay
// board silkscreen.
func (d *Device) SetChannel(channel int, on bool) error {
	if channel < 1 || channel > Channels {
		return ErrUnknownChannel
	}
	mask := byte(1) << (channel - 1)
	if on {
		d.shadow &^= mask // active low
	} else {
		d.shadow |= mask
	}
	return d.write()
}

// ChannelOn reports the shadow state of one relay.
func (d *Device) ChannelOn(channel int) (bool, error) {
	if channel < 1 || channel > Channels {
		return false, ErrUnknownChannel
	}
	return d.shadow&(1<<(channel-1)) == 0, nil
}

func (d *Device) write() error {
	return d.bus.Tx(d.addr, []byte{d.shadow}, nil)
}
