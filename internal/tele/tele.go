// Package tele publishes appliance state, weather readings and errors over MQTT.
package tele

import (
	"context"
	"encoding/json"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/segclock/helpers"
	"github.com/temoto/segclock/internal/weather"
	"github.com/temoto/segclock/log2"
)

const (
	defaultStateInterval  = 5 * time.Minute
	defaultNetworkTimeout = 30 * time.Second
	queueLength           = 32
)

type Transporter interface {
	Init(ctx context.Context, log *log2.Log, teleConfig Config, willPayload []byte) error
	SendState(payload []byte) bool
	SendWeather(payload []byte) bool
	SendError(payload []byte) bool
	Close()
}

type message struct {
	weather bool
	payload []byte
}

// Tele contract:
// - Init() fails only with invalid config, network issues ignored
// - State/Error/Weather never block, messages over queue capacity are dropped
// - State is retained, resent periodically and after failure
type Tele struct {
	enabled       bool
	log           *log2.Log
	transport     Transporter
	stateCh       chan State
	msgCh         chan message
	stopCh        chan struct{}
	doneCh        chan struct{}
	stateInterval time.Duration
	now           func() time.Time
}

var _ Teler = &Tele{} // compile-time interface test

func New() *Tele { return &Tele{} }

func (self *Tele) Init(ctx context.Context, log *log2.Log, teleConfig Config) error {
	self.enabled = teleConfig.Enabled
	self.log = log.Clone(log2.LInfo)
	if teleConfig.LogDebug {
		self.log.SetLevel(log2.LDebug)
	}
	if !self.enabled {
		return nil
	}
	if teleConfig.MqttBroker == "" {
		return errors.NotValidf("tele mqtt_broker empty")
	}

	self.stopCh = make(chan struct{})
	self.doneCh = make(chan struct{})
	self.stateCh = make(chan State, 1)
	self.msgCh = make(chan message, queueLength)
	self.stateInterval = helpers.IntSecondDefault(teleConfig.StateIntervalSec, defaultStateInterval)
	if self.now == nil {
		self.now = time.Now
	}

	// test code sets .transport
	if self.transport == nil { // production path
		self.transport = &transportMqtt{}
	}
	if err := self.transport.Init(ctx, self.log, teleConfig, []byte(StateDisconnected)); err != nil {
		return errors.Annotate(err, "tele transport")
	}

	go self.worker()
	self.State(StateBoot)
	return nil
}

// Close sends final state and stops background worker.
func (self *Tele) Close() {
	if !self.enabled {
		return
	}
	self.State(StateStopped)
	close(self.stopCh)
	<-self.doneCh
	self.transport.Close()
}

func (self *Tele) State(s State) {
	if !self.enabled {
		return
	}
	self.log.Debugf("tele: state=%s", s)
	// only latest state matters
	for {
		select {
		case self.stateCh <- s:
			return
		default:
		}
		select {
		case <-self.stateCh:
		default:
		}
	}
}

type errorPayload struct {
	Message string `json:"message"`
	Time    int64  `json:"time"`
}

func (self *Tele) Error(e error) {
	if !self.enabled || e == nil {
		return
	}
	b, err := json.Marshal(errorPayload{Message: e.Error(), Time: self.now().Unix()})
	if err != nil {
		self.log.Debugf("tele: error marshal err=%v", err)
		return
	}
	self.push(message{payload: b})
}

type weatherPayload struct {
	weather.Reading
	Time int64 `json:"time"`
}

func (self *Tele) Weather(r weather.Reading) {
	if !self.enabled {
		return
	}
	b, err := json.Marshal(weatherPayload{Reading: r, Time: self.now().Unix()})
	if err != nil {
		self.log.Debugf("tele: weather marshal err=%v", err)
		return
	}
	self.push(message{weather: true, payload: b})
}

func (self *Tele) push(m message) {
	select {
	case self.msgCh <- m:
	default:
		// must not call log.Error here, it may loop back into tele
		self.log.Debugf("tele: queue full, dropped %s", m.payload)
	}
}

func (self *Tele) worker() {
	defer close(self.doneCh)
	const retryInterval = 17 * time.Second
	var current State
	var sent bool
	tmrRegular := time.NewTicker(self.stateInterval)
	defer tmrRegular.Stop()
	tmrRetry := time.NewTicker(retryInterval)
	defer tmrRetry.Stop()
	for {
		select {
		case next := <-self.stateCh:
			if next != current {
				current = next
				sent = self.transport.SendState([]byte(current))
			}

		case m := <-self.msgCh:
			if m.weather {
				self.transport.SendWeather(m.payload)
			} else {
				self.transport.SendError(m.payload)
			}

		case <-tmrRegular.C:
			if current != StateInvalid {
				sent = self.transport.SendState([]byte(current))
			}

		case <-tmrRetry.C:
			if !sent && current != StateInvalid {
				sent = self.transport.SendState([]byte(current))
			}

		case <-self.stopCh:
			self.drain(current)
			return
		}
	}
}

// drain delivers what was queued before Close.
func (self *Tele) drain(current State) {
	for {
		select {
		case next := <-self.stateCh:
			if next != current {
				current = next
				self.transport.SendState([]byte(current))
			}
		case m := <-self.msgCh:
			if m.weather {
				self.transport.SendWeather(m.payload)
			} else {
				self.transport.SendError(m.payload)
			}
		default:
			return
		}
	}
}
