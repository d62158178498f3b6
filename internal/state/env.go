package state

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"github.com/temoto/segclock/log2"
)

const (
	DefaultEnvPath = "/etc/segclock/segclock.env"

	EnvWeatherApiKey    = "SEGCLOCK_WEATHER_API_KEY"
	EnvWeatherZip       = "SEGCLOCK_WEATHER_ZIP"
	EnvTeleMqttPassword = "SEGCLOCK_TELE_MQTT_PASSWORD"
)

// LoadEnvFile puts variables from dotenv file into process environment.
// Missing file is not an error. Variables already set in environment win.
func LoadEnvFile(log *log2.Log, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debugf("env file path=%s not found", path)
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Annotatef(err, "env file path=%s", path)
	}
	log.Debugf("env file path=%s loaded", path)
	return nil
}

// ApplyEnv overrides secrets from environment, getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvWeatherApiKey); v != "" {
		c.Weather.ApiKey = v
	}
	if v := getenv(EnvWeatherZip); v != "" {
		c.Weather.Zip = v
	}
	if v := getenv(EnvTeleMqttPassword); v != "" {
		c.Tele.MqttPassword = v
	}
}
