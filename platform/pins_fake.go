//go:build !rp2040 && !rp2350

package platform

import "sync"

// FakePin implements GPIOPin for host-side tests and for hosts without
// GPIO hardware.
type FakePin struct {
	mu    sync.RWMutex
	n     int
	level bool
	out   bool
}

func (p *FakePin) ConfigureInput(Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = false
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = true
	p.level = initial
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

func (p *FakePin) Toggle() {
	p.mu.Lock()
	p.level = !p.level
	p.mu.Unlock()
}

func (p *FakePin) Number() int { return p.n }

// FakePinFactory hands out stable FakePin instances by number.
type FakePinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewFakePinFactory() *FakePinFactory {
	return &FakePinFactory{pins: map[int]*FakePin{}}
}

func (f *FakePinFactory) ByNumber(n int) (GPIOPin, bool) {
	if n < 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{n: n}
		f.pins[n] = p
	}
	return p, true
}
