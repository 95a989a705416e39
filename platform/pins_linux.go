//go:build linux && !tinygo

package platform

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// ChipPinFactory hands out pins from one Linux GPIO character device.
type ChipPinFactory struct {
	chip *gpiocdev.Chip
}

// NewChipPinFactory opens the named chip (e.g. "gpiochip0").
func NewChipPinFactory(name string) (*ChipPinFactory, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &ChipPinFactory{chip: chip}, nil
}

// Close releases the chip. Pins requested earlier stay usable until their
// own lines are closed by process exit.
func (f *ChipPinFactory) Close() error { return f.chip.Close() }

func (f *ChipPinFactory) ByNumber(n int) (GPIOPin, bool) {
	if n < 0 {
		return nil, false
	}
	return &cdevPin{chip: f.chip, n: n}, true
}

// cdevPin requests its line lazily on the first Configure call, matching
// the configure-then-use contract of the machine backend.
type cdevPin struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	n    int
	out  bool
}

func (p *cdevPin) ConfigureInput(pull Pull) error {
	if p.line != nil {
		_ = p.line.Close()
		p.line = nil
	}
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch pull {
	case PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}
	line, err := p.chip.RequestLine(p.n, opts...)
	if err != nil {
		return fmt.Errorf("request input line %d: %w", p.n, err)
	}
	p.line = line
	p.out = false
	return nil
}

func (p *cdevPin) ConfigureOutput(initial bool) error {
	if p.line != nil {
		_ = p.line.Close()
		p.line = nil
	}
	v := 0
	if initial {
		v = 1
	}
	line, err := p.chip.RequestLine(p.n, gpiocdev.AsOutput(v))
	if err != nil {
		return fmt.Errorf("request output line %d: %w", p.n, err)
	}
	p.line = line
	p.out = true
	return nil
}

func (p *cdevPin) Set(level bool) {
	if p.line == nil || !p.out {
		return
	}
	v := 0
	if level {
		v = 1
	}
	_ = p.line.SetValue(v)
}

func (p *cdevPin) Get() bool {
	if p.line == nil {
		return false
	}
	v, err := p.line.Value()
	return err == nil && v != 0
}

func (p *cdevPin) Toggle()     { p.Set(!p.Get()) }
func (p *cdevPin) Number() int { return p.n }
