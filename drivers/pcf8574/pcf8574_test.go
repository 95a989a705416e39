package pcf8574

import "testing"

// fake I²C bus recording the last written byte per address.

type fakeI2C struct {
	addr   uint16
	writes []byte
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.addr = addr
	if len(w) > 0 {
		f.writes = append(f.writes, w[0])
	}
	return nil
}

func TestConfigure_AllLinesHigh(t *testing.T) {
	bus := &fakeI2C{}
	d := New(bus, 0)

	if err := d.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if bus.addr != AddressDefault {
		t.Fatalf("addr = %#x, want %#x", bus.addr, AddressDefault)
	}
	if got := bus.writes[len(bus.writes)-1]; got != 0xFF {
		t.Fatalf("configure wrote %#02x, want 0xFF (all relays off)", got)
	}
}

func TestSetChannel_ActiveLow(t *testing.T) {
	bus := &fakeI2C{}
	d := New(bus, AddressDefault)
	if err := d.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if err := d.SetChannel(1, true); err != nil {
		t.Fatalf("SetChannel on: %v", err)
	}
	if got := bus.writes[len(bus.writes)-1]; got != 0xFE {
		t.Fatalf("on wrote %#02x, want 0xFE (bit 0 low)", got)
	}
	if on, _ := d.ChannelOn(1); !on {
		t.Fatal("ChannelOn(1) = false after set")
	}

	if err := d.SetChannel(1, false); err != nil {
		t.Fatalf("SetChannel off: %v", err)
	}
	if got := bus.writes[len(bus.writes)-1]; got != 0xFF {
		t.Fatalf("off wrote %#02x, want 0xFF", got)
	}
}

func TestSetChannel_Validation(t *testing.T) {
	d := New(&fakeI2C{}, AddressDefault)
	if err := d.SetChannel(0, true); err != ErrUnknownChannel {
		t.Fatalf("channel 0 err = %v, want ErrUnknownChannel", err)
	}
	if err := d.SetChannel(Channels+1, true); err != ErrUnknownChannel {
		t.Fatalf("channel 9 err = %v, want ErrUnknownChannel", err)
	}
}
