package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// FromMs converts a millisecond count to a Duration.
// ms==0 is coerced to 1ms so a misconfigured period can never arm a
// zero-interval timer.
func FromMs(ms uint32) time.Duration {
	if ms == 0 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

// ToMs converts a Duration to whole milliseconds, rounding down.
func ToMs(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d / time.Millisecond)
}
