// services/sched/slot_test.go
package sched

import (
	"testing"

	"growlight-go/types"
)

func TestSyncSlot_TakeIsEmptyUntilPut(t *testing.T) {
	var s syncSlot
	if _, ok := s.take(); ok {
		t.Fatal("take on a fresh slot reported pending")
	}

	s.put(types.PhaseDark)
	p, ok := s.take()
	if !ok || p != types.PhaseDark {
		t.Fatalf("take = (%v, %v), want (dark, true)", p, ok)
	}

	// Taking again is a no-op.
	if _, ok := s.take(); ok {
		t.Fatal("second take reported pending")
	}
}

func TestSyncSlot_LatestPutWins(t *testing.T) {
	var s syncSlot
	s.put(types.PhaseLight)
	s.put(types.PhaseDark)
	p, ok := s.take()
	if !ok || p != types.PhaseDark {
		t.Fatalf("take = (%v, %v), want the most recent phase", p, ok)
	}
}
