package tele

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/segclock/helpers"
	"github.com/temoto/segclock/log2"
)

type transportMqtt struct {
	log    *log2.Log
	m      mqtt.Client
	mopt   *mqtt.ClientOptions
	stopCh chan struct{}
	once   sync.Once

	topicState   string
	topicWeather string
	topicError   string
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, teleConfig Config, willPayload []byte) error {
	self.log = log
	mqttLog := log.Clone(log2.LDebug)
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if teleConfig.MqttLogDebug {
		mqtt.DEBUG = mqttLog
	}

	clientId := teleConfig.ClientId
	if clientId == "" {
		clientId = "segclock"
	}
	credFun := func() (string, string) {
		return clientId, teleConfig.MqttPassword
	}
	self.topicState = fmt.Sprintf("%s/state", clientId)
	self.topicWeather = fmt.Sprintf("%s/weather", clientId)
	self.topicError = fmt.Sprintf("%s/error", clientId)

	networkTimeout := helpers.IntSecondDefault(teleConfig.NetworkTimeoutSec, defaultNetworkTimeout)
	if networkTimeout < 1*time.Second {
		networkTimeout = 1 * time.Second
	}
	connectTimeout := networkTimeout * 3
	keepaliveTimeout := helpers.IntSecondDefault(teleConfig.KeepaliveSec, networkTimeout/2)

	self.stopCh = make(chan struct{})
	self.mopt = mqtt.NewClientOptions().
		AddBroker(teleConfig.MqttBroker).
		SetAutoReconnect(true).
		SetBinaryWill(self.topicState, willPayload, 1, true).
		SetCleanSession(true).
		SetClientID(clientId).
		SetConnectTimeout(connectTimeout).
		SetCredentialsProvider(credFun).
		SetKeepAlive(keepaliveTimeout).
		SetMaxReconnectInterval(connectTimeout).
		SetOrderMatters(false).
		SetPingTimeout(networkTimeout).
		SetWriteTimeout(networkTimeout)
	self.m = mqtt.NewClient(self.mopt)

	go self.online()
	return nil
}

func (self *transportMqtt) Close() {
	self.once.Do(func() { close(self.stopCh) })
	if self.m.IsConnected() {
		self.m.Disconnect(uint(self.mopt.PingTimeout / time.Millisecond))
	}
}

func (self *transportMqtt) SendState(payload []byte) bool {
	return self.publish(self.topicState, true, payload)
}

func (self *transportMqtt) SendWeather(payload []byte) bool {
	return self.publish(self.topicWeather, true, payload)
}

func (self *transportMqtt) SendError(payload []byte) bool {
	return self.publish(self.topicError, false, payload)
}

func (self *transportMqtt) publish(topic string, retained bool, payload []byte) bool {
	if !self.m.IsConnected() {
		self.log.Debugf("tele: not connected, skip topic=%s", topic)
		return false
	}
	t := self.m.Publish(topic, 1, retained, payload)
	return self.tokenWait(t, "publish "+topic) == nil
}

func (self *transportMqtt) online() {
	for self.isRunning() {
		self.log.Debugf("tele connect before")
		t := self.m.Connect()
		if self.tokenWait(t, "connect") == nil {
			self.log.Infof("tele: connected broker=%v", self.mopt.Servers)
			return // success path
		}
		select {
		case <-time.After(1 * time.Second):
		case <-self.stopCh:
			return
		}
	}
}

func (self *transportMqtt) isRunning() bool {
	select {
	case <-self.stopCh:
		return false
	default:
		return true
	}
}

func (self *transportMqtt) tokenWait(t mqtt.Token, tag string) error {
	if !t.WaitTimeout(self.mopt.WriteTimeout) {
		err := errors.Errorf("%s timeout", tag)
		self.log.Infof("tele: MQTT %s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotate(err, tag)
		self.log.Infof("tele: MQTT %s", err.Error())
		return err
	}
	return nil
}
