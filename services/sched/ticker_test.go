// services/sched/ticker_test.go
package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"growlight-go/errcode"
)

func TestHostTimer_FiresPeriodically(t *testing.T) {
	h := NewHostTimer()
	defer h.Stop()

	var fired atomic.Uint32
	if err := h.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := h.AttachPeriodic(5*time.Millisecond, func() { fired.Add(1) }); err != nil {
		t.Fatalf("AttachPeriodic: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for fired.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("fired %d times within 1s, want at least 3", fired.Load())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHostTimer_AttachValidation(t *testing.T) {
	h := NewHostTimer()
	defer h.Stop()

	if err := h.AttachPeriodic(0, func() {}); errcode.Of(err) != errcode.ArmingFailed {
		t.Errorf("zero period: err = %v, want arming_failed", err)
	}
	if err := h.AttachPeriodic(time.Millisecond, nil); errcode.Of(err) != errcode.ArmingFailed {
		t.Errorf("nil callback: err = %v, want arming_failed", err)
	}

	if err := h.AttachPeriodic(time.Hour, func() {}); err != nil {
		t.Fatalf("AttachPeriodic: %v", err)
	}
	if err := h.AttachPeriodic(time.Hour, func() {}); errcode.Of(err) != errcode.ArmingFailed {
		t.Errorf("double attach: err = %v, want arming_failed", err)
	}
}

func TestHostTimer_SetPeriodRequiresArming(t *testing.T) {
	h := NewHostTimer()
	defer h.Stop()

	if err := h.SetPeriod(time.Second); errcode.Of(err) != errcode.ArmingFailed {
		t.Errorf("unarmed SetPeriod: err = %v, want arming_failed", err)
	}
	if err := h.AttachPeriodic(time.Hour, func() {}); err != nil {
		t.Fatalf("AttachPeriodic: %v", err)
	}
	if err := h.SetPeriod(0); errcode.Of(err) != errcode.ArmingFailed {
		t.Errorf("zero SetPeriod: err = %v, want arming_failed", err)
	}
	if err := h.SetPeriod(time.Minute); err != nil {
		t.Errorf("SetPeriod: %v", err)
	}
}
