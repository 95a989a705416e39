// Package serialrelay drives RoboCore-style chained serial relay modules
// over a two-wire (data + clock) bit-banged link.
//
// Protocol notes (module datasheet):
// • One state byte per module; bit 0 = channel 1 ... bit 3 = channel 4.
// • Bytes are shifted MSB-first, furthest module first, so after a full
//   transmission every module in the chain holds its own byte.
// • Per bit: data level set, data-setup delay, clock rising edge, clock-high
//   hold (longer on the final bit, which latches the byte into the module's
//   output register), clock low, settle delay.
// • The data line idles low; it is forced low after the last bit.

package serialrelay

import (
	"errors"
	"time"
)

// ---------------- Types and configuration ----------------

// Pin is the minimal output-line contract the driver needs.
type Pin interface {
	Set(level bool)
}

// State of a single relay channel.
type State uint8

const (
	Off State = iota
	On
)

const (
	// MaxModules is the longest chain the protocol addresses.
	MaxModules = 10
	// ChannelsPerModule is fixed by the board hardware.
	ChannelsPerModule = 4
)

// Bit timing. The latch hold on the final bit commits the shifted byte.
const (
	DelayData      = 10 * time.Microsecond
	DelayClockHigh = 20 * time.Microsecond
	DelayLatch     = 100 * time.Microsecond
	DelayClockLow  = 5 * time.Microsecond
)

var (
	ErrInvalidModules = errors.New("serialrelay: module count out of range")
	ErrUnknownChannel = errors.New("serialrelay: channel out of range")
	ErrUnknownModule  = errors.New("serialrelay: module out of range")
)

// Device owns the two output lines and the shadow state of every module in
// the chain. It is not safe for concurrent use; callers serialise access
// (the relay service is the single writer).
type Device struct {
	data    Pin
	clock   Pin
	modules int
	states  [MaxModules]byte

	// delay is injectable for host tests; hardware uses the real sleep.
	delay func(time.Duration)
}

// New returns a driver for a chain of 1..MaxModules modules. Both lines are
// driven low so the chain sees a defined idle state.
func New(data, clock Pin, modules int) (*Device, error) {
	if modules < 1 || modules > MaxModules {
		return nil, ErrInvalidModules
	}
	d := &Device{
		data:    data,
		clock:   clock,
		modules: modules,
		delay:   time.Sleep,
	}
	d.data.Set(false)
	d.clock.Set(false)
	return d, nil
}

// SetDelayFunc replaces the inter-bit delay, for tests.
func (d *Device) SetDelayFunc(f func(time.Duration)) {
	if f != nil {
		d.delay = f
	}
}

// Modules returns the configured chain length.
func (d *Device) Modules() int { return d.modules }

// ChannelState reports the shadow state of one channel.
func (d *Device) ChannelState(channel, module int) (State, error) {
	if channel < 1 || channel > ChannelsPerModule {
		return Off, ErrUnknownChannel
	}
	if module < 1 || module > d.modules {
		return Off, ErrUnknownModule
	}
	if d.states[module-1]&(1<<(channel-1)) != 0 {
		return On, nil
	}
	return Off, nil
}

// SetRelay updates one channel on one module and retransmits the whole
// chain. Channels and modules are 1-based, matching the board silkscreen.
// The call blocks for the full, bounded transmission time; it must not be
// invoked from interrupt context.
func (d *Device) SetRelay(channel int, s State, module int) error {
	if channel < 1 || channel > ChannelsPerModule {
		return ErrUnknownChannel
	}
	if module < 1 || module > d.modules {
		return ErrUnknownModule
	}

	mask := byte(1) << (channel - 1)
	if s == On {
		d.states[module-1] |= mask
	} else {
		d.states[module-1] &^= mask
	}

	d.transmit()
	return nil
}

// transmit shifts every module's byte out, furthest module first.
func (d *Device) transmit() {
	for i := d.modules; i >= 1; i-- {
		d.sendByte(d.states[i-1])
	}
}

// sendByte clocks out one byte MSB-first. The 8th bit carries the latch
// hold; afterwards the data line is forced low (idle state).
func (d *Device) sendByte(b byte) {
	mask := byte(0x80)
	for i := 1; i <= 8; i++ {
		d.data.Set(b&mask != 0)
		d.delay(DelayData)

		d.clock.Set(true) // rising edge
		if i == 8 {
			d.delay(DelayLatch)
		} else {
			d.delay(DelayClockHigh)
		}
		d.clock.Set(false)
		d.delay(DelayClockLow)

		mask >>= 1
	}
	d.data.Set(false)
}
