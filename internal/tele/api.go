package tele

import (
	"context"

	"github.com/temoto/segclock/internal/weather"
	"github.com/temoto/segclock/log2"
)

type State string

const (
	StateInvalid      State = ""
	StateBoot         State = "boot"
	StateRunning      State = "running"
	StateStopped      State = "stopped"
	StateDisconnected State = "disconnected"
)

// Teler methods never block on network.
type Teler interface {
	Init(context.Context, *log2.Log, Config) error
	State(State)
	Error(error)
	Weather(weather.Reading)
	Close()
}

type Noop struct{}

var _ Teler = Noop{} // compile-time interface test

func (Noop) Init(context.Context, *log2.Log, Config) error { return nil }
func (Noop) State(State)                                   {}
func (Noop) Error(error)                                   {}
func (Noop) Weather(weather.Reading)                       {}
func (Noop) Close()                                        {}
