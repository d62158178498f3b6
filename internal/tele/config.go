package tele

type Config struct {
	Enabled           bool   `hcl:"enable"`
	ClientId          string `hcl:"client_id" validate:"required_if=Enabled true"`
	LogDebug          bool   `hcl:"log_debug"`
	KeepaliveSec      int    `hcl:"keepalive_sec" validate:"gte=0"`
	MqttBroker        string `hcl:"mqtt_broker" validate:"required_if=Enabled true"`
	MqttLogDebug      bool   `hcl:"mqtt_log_debug"`
	MqttPassword      string `hcl:"mqtt_password"` // secret
	NetworkTimeoutSec int    `hcl:"network_timeout_sec" validate:"gte=0,lte=600"`
	StateIntervalSec  int    `hcl:"state_interval_sec" validate:"gte=0"`
}
