package engine

import (
	"context"
	"time"

	"github.com/temoto/segclock/helpers"
)

// Sleeper is the only source of time and suspension for engine.
type Sleeper interface {
	Now() time.Time
	// Sleep returns non-nil error when ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Now() time.Time { return time.Now() }
func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	return helpers.SleepContext(ctx, d)
}

var RealSleeper Sleeper = realSleeper{}
