package tele

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/segclock/internal/weather"
	"github.com/temoto/segclock/log2"
)

type transportMock struct {
	t       testing.TB
	mu      sync.Mutex
	will    []byte
	states  []string
	weather [][]byte
	errors  [][]byte
	fail    bool
	closed  bool
}

func (self *transportMock) Init(ctx context.Context, log *log2.Log, teleConfig Config, willPayload []byte) error {
	self.will = willPayload
	return nil
}

func (self *transportMock) SendState(payload []byte) bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.t.Logf("mock state=%s", payload)
	self.states = append(self.states, string(payload))
	return !self.fail
}

func (self *transportMock) SendWeather(payload []byte) bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.weather = append(self.weather, payload)
	return !self.fail
}

func (self *transportMock) SendError(payload []byte) bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.errors = append(self.errors, payload)
	return !self.fail
}

func (self *transportMock) Close() {
	self.mu.Lock()
	self.closed = true
	self.mu.Unlock()
}

func newTestTele(t testing.TB) (*Tele, *transportMock) {
	mock := &transportMock{t: t}
	tele := &Tele{
		transport: mock,
		now:       func() time.Time { return time.Unix(1700000000, 0) },
	}
	cfg := Config{Enabled: true, ClientId: "clock1", MqttBroker: "tcp://localhost:1883"}
	require.NoError(t, tele.Init(context.Background(), log2.NewTest(t, log2.LDebug), cfg))
	return tele, mock
}

func TestTele(t *testing.T) {
	t.Parallel()

	tele, mock := newTestTele(t)
	assert.Equal(t, "disconnected", string(mock.will))
	tele.Weather(weather.Reading{Temperature: 20, FeelsLike: 18, Humidity: 55, Unit: weather.Celsius})
	tele.Error(fmt.Errorf("display: write: i2c remote i/o error"))
	tele.State(StateRunning)
	tele.Close()

	mock.mu.Lock()
	defer mock.mu.Unlock()
	assert.True(t, mock.closed)
	require.Len(t, mock.weather, 1)
	assert.JSONEq(t, `{"temperature":20,"feels_like":18,"humidity":55,"unit":"C","time":1700000000}`, string(mock.weather[0]))
	require.Len(t, mock.errors, 1)
	var ep errorPayload
	require.NoError(t, json.Unmarshal(mock.errors[0], &ep))
	assert.Equal(t, "display: write: i2c remote i/o error", ep.Message)
	require.NotEmpty(t, mock.states)
	assert.Equal(t, "stopped", mock.states[len(mock.states)-1])
	for i := 1; i < len(mock.states); i++ {
		assert.NotEqual(t, mock.states[i-1], mock.states[i], "duplicate state sent")
	}
}

func TestTeleQueueFull(t *testing.T) {
	t.Parallel()

	tele := &Tele{transport: &transportMock{t: t}}
	require.NoError(t, tele.Init(context.Background(), log2.NewTest(t, log2.LDebug), Config{Enabled: true, MqttBroker: "tcp://x:1"}))
	done := make(chan struct{})
	go func() {
		for i := 0; i < queueLength*4; i++ {
			tele.Error(fmt.Errorf("e%d", i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Error() blocked")
	}
	tele.Close()
}

func TestTeleDisabled(t *testing.T) {
	t.Parallel()

	mock := &transportMock{t: t}
	tele := &Tele{transport: mock}
	require.NoError(t, tele.Init(context.Background(), log2.NewTest(t, log2.LDebug), Config{Enabled: false}))
	tele.State(StateRunning)
	tele.Error(fmt.Errorf("ignored"))
	tele.Weather(weather.Reading{})
	tele.Close()
	assert.Nil(t, mock.will)
	assert.Empty(t, mock.states)
	assert.False(t, mock.closed)
}

func TestTeleInvalidConfig(t *testing.T) {
	t.Parallel()

	tele := New()
	err := tele.Init(context.Background(), log2.NewTest(t, log2.LDebug), Config{Enabled: true})
	assert.Error(t, err)
}
