// Package clock provides wall time from preferred NTP server with local fallback.
package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
	"github.com/juju/errors"
	"github.com/temoto/segclock/log2"
)

const (
	DefaultTimeout = 5 * time.Second
	ntpVersion     = 3
)

type Mode uint8

const (
	Mode12 Mode = 12
	Mode24 Mode = 24
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "12":
		return Mode12, nil
	case "24":
		return Mode24, nil
	}
	return 0, errors.NotValidf("time_format=%q", s)
}

// DisplayHour maps 0..23 to hour shown on display.
// 12h mode: 0 and 12 are shown as 12.
func DisplayHour(h int, mode Mode) int {
	if mode != Mode12 {
		return h
	}
	if h%12 == 0 {
		return 12
	}
	return h % 12
}

type Reading struct {
	Hour   int
	Minute int
}

func ReadingOf(t time.Time) Reading {
	return Reading{Hour: t.Hour(), Minute: t.Minute()}
}

func (r Reading) String() string { return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute) }

type QueryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

type Source struct {
	server  string
	timeout time.Duration
	query   QueryFunc
	now     func() time.Time
	log     *log2.Log
}

// NewSource with empty server never queries network.
func NewSource(server string, timeout time.Duration, log *log2.Log) *Source {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Source{
		server:  server,
		timeout: timeout,
		query:   ntp.QueryWithOptions,
		now:     time.Now,
		log:     log,
	}
}

// SetQuery replaces network query, used in tests.
func (self *Source) SetQuery(q QueryFunc) { self.query = q }

// SetNow replaces local time source, used in tests.
func (self *Source) SetNow(f func() time.Time) { self.now = f }

func (self *Source) Server() string { return self.server }

// Now makes at most one NTP query. Any failure is logged and local time returned.
func (self *Source) Now(ctx context.Context) time.Time {
	t, err := self.query1(ctx)
	if err != nil {
		self.log.Errorf("clock: %v, using local time", err)
		return self.now()
	}
	return t
}

// Offset is NTP time minus local time, zero when NTP is not available.
func (self *Source) Offset(ctx context.Context) time.Duration {
	local := self.now()
	t, err := self.query1(ctx)
	if err != nil {
		self.log.Errorf("clock: %v, using local time", err)
		return 0
	}
	return t.Sub(local)
}

func (self *Source) query1(ctx context.Context) (time.Time, error) {
	if self.server == "" {
		return self.now(), nil
	}
	if err := ctx.Err(); err != nil {
		return time.Time{}, errors.Trace(err)
	}
	opt := ntp.QueryOptions{Timeout: self.timeout, Version: ntpVersion}
	r, err := self.query(self.server, opt)
	if err != nil {
		return time.Time{}, errors.Annotatef(err, "ntp query server=%s", self.server)
	}
	if err = r.Validate(); err != nil {
		return time.Time{}, errors.Annotatef(err, "ntp response server=%s", self.server)
	}
	return r.Time, nil
}
