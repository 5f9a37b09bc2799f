package outbox

import "time"

// Backoff doubles the wait after every consecutive failed round, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before the next round given the number of consecutive
// failed rounds so far. Zero failures means no extra wait.
func (b Backoff) Delay(failures int) time.Duration {
	if failures <= 0 || b.Base <= 0 {
		return 0
	}
	if failures > 20 {
		failures = 20
	}
	delay := b.Base * time.Duration(1<<(failures-1))
	if b.Max > 0 {
		delay = min(delay, b.Max)
	}
	return delay
}
