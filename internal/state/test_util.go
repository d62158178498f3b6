package state

import (
	"context"
	"os"
	"testing"

	"github.com/temoto/segclock/internal/tele"
	"github.com/temoto/segclock/log2"
)

// TestConfigBase is minimal valid configuration, append test specifics.
const TestConfigBase = `weather { api_key = "test-key" zip = "94107" }
`

func NewTestContext(t testing.TB, confString string) (context.Context, *Global) {
	fs := NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	var log *log2.Log
	if os.Getenv("segclock_test_log_stderr") == "1" {
		log = log2.NewStderr(log2.LDebug) // useful with panics
	} else {
		log = log2.NewTest(t, log2.LDebug)
	}
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log, tele.Noop{})
	g.MustInit(ctx, MustReadConfig(log, fs, "test-inline"))
	t.Cleanup(g.Stop)
	return ctx, g
}
