// Package platform supplies GPIO pins behind a small abstraction so the
// scheduler and relay driver build unchanged for RP2040 firmware, a Linux
// host with real GPIO character devices, and host-side tests.
package platform

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Toggle()
	Number() int
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}
