package helpers

import (
	"time"
)

// Limited exponential backoff for retry delays.
// K=1 with Min=Max gives fixed delay.
//
// Use scenario:
// for attempt := 1; ; attempt++ {
//   err := op()
//   if err == nil || attempt == max { break }
//   time.Sleep(backoff.Delay(attempt))
// }
type Backoff struct {
	Min time.Duration
	Max time.Duration
	K   float32
	Res time.Duration // delay resolution for nice logs, default=1ms
}

// Delay after failed attempt number `attempt`, counting from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Min
	k := b.K
	if k < 1 {
		k = 1
	}
	for i := 1; i < attempt && d < b.Max; i++ {
		d = time.Duration(float32(d) * k)
	}
	return b.round(b.limit(d))
}

func (b Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if b.Max != 0 && d > b.Max {
		d = b.Max
	}
	return d
}

func (b Backoff) round(d time.Duration) time.Duration {
	res := b.Res
	if res == 0 {
		res = 1 * time.Millisecond
	}
	return d / res * res
}
