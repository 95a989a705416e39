// services/sched/slot.go
package sched

import (
	"sync/atomic"

	"growlight-go/types"
)

// syncSlot is the single-producer/single-consumer handoff between the timer
// callback and the service loop. The pending bit and the phase share one
// 32-bit word so a preempting tick can never expose a half-written update;
// take clears the slot with a single swap.
type syncSlot struct {
	w atomic.Uint32
}

const slotPending = uint32(1) << 8

func (s *syncSlot) put(p types.Phase) {
	s.w.Store(slotPending | uint32(p))
}

// take returns the latched phase and clears the slot. When nothing is
// pending it reports false and has no side effects.
func (s *syncSlot) take() (types.Phase, bool) {
	v := s.w.Swap(0)
	if v&slotPending == 0 {
		return 0, false
	}
	return types.Phase(v & 0xFF), true
}
