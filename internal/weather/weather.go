// Package weather fetches current outdoor conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/segclock/helpers"
	"github.com/temoto/segclock/log2"
)

const (
	DefaultEndpoint = "https://api.openweathermap.org/data/2.5/weather"
	DefaultTimeout  = 10 * time.Second
	DefaultAttempts = 3
	DefaultDelay    = 5 * time.Second

	maxBody = 64 << 10

	// sanity limit for metric temperature, also keeps int conversion defined
	maxCelsius = 200
)

type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToUpper(s)) {
	case Celsius:
		return Celsius, nil
	case Fahrenheit:
		return Fahrenheit, nil
	}
	return "", errors.NotValidf("temp_unit=%q", s)
}

// Reading values are rounded integers in Unit, humidity percent.
type Reading struct {
	Temperature int  `json:"temperature"`
	FeelsLike   int  `json:"feels_like"`
	Humidity    uint `json:"humidity"`
	Unit        Unit `json:"unit"`
}

func (r Reading) String() string {
	return fmt.Sprintf("temp=%d%s feel=%d%s rh=%d%%", r.Temperature, r.Unit, r.FeelsLike, r.Unit, r.Humidity)
}

type Config struct {
	Endpoint string
	APIKey   string
	Zip      string
	Unit     Unit
	Timeout  time.Duration
	Attempts int
	Backoff  helpers.Backoff
}

type Client struct {
	c     Config
	http  *http.Client
	sleep func(context.Context, time.Duration) error
	log   *log2.Log
}

func NewClient(c Config, log *log2.Log) *Client {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Unit == "" {
		c.Unit = Celsius
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.Backoff.Min == 0 {
		c.Backoff = helpers.Backoff{Min: DefaultDelay, Max: DefaultDelay, K: 1}
	}
	return &Client{
		c:     c,
		http:  &http.Client{Timeout: c.Timeout},
		sleep: helpers.SleepContext,
		log:   log,
	}
}

// SetSleep replaces delay between attempts, used in tests.
func (self *Client) SetSleep(f func(context.Context, time.Duration) error) { self.sleep = f }

func (self *Client) Unit() Unit { return self.c.Unit }

// Fetch tries up to Attempts times, retrying only transient failures.
// Any returned error means weather is unavailable, see Kind() for details.
func (self *Client) Fetch(ctx context.Context) (Reading, error) {
	var err error
	for attempt := 1; ; attempt++ {
		var r Reading
		r, err = self.fetch1(ctx)
		if err == nil {
			self.log.Debugf("weather: attempt=%d %s", attempt, r.String())
			return r, nil
		}
		kind := Kind(err)
		if kind != KindTransient {
			self.log.Errorf("weather: %s error, no retry: %v", kind, err)
			return Reading{}, err
		}
		if attempt >= self.c.Attempts {
			break
		}
		delay := self.c.Backoff.Delay(attempt)
		self.log.Infof("weather: attempt=%d/%d %v, retry in %v", attempt, self.c.Attempts, err, delay)
		if e := self.sleep(ctx, delay); e != nil {
			return Reading{}, errors.Annotate(e, "weather retry")
		}
	}
	err = errors.Annotatef(err, "weather unavailable after attempts=%d", self.c.Attempts)
	self.log.Error(err)
	return Reading{}, err
}

func (self *Client) fetch1(ctx context.Context) (Reading, error) {
	u, err := url.Parse(self.c.Endpoint)
	if err != nil {
		return Reading{}, errors.NewNotValid(err, "weather endpoint")
	}
	q := u.Query()
	q.Set("zip", self.c.Zip)
	q.Set("appid", self.c.APIKey)
	q.Set("units", "metric")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Reading{}, errors.NewNotValid(err, "weather request")
	}
	resp, err := self.http.Do(req)
	if err != nil {
		// strip url with api key from message
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return Reading{}, &transientError{errors.Annotate(err, "weather http")}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Reading{}, &transientError{errors.Annotate(err, "weather read")}
	}
	if err = classifyStatus(resp.StatusCode); err != nil {
		return Reading{}, err
	}
	return Parse(body, self.c.Unit)
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return errors.Unauthorizedf("weather api key rejected status=%d", code)
	case code == http.StatusNotFound:
		return errors.NotFoundf("weather location (zip) status=%d", code)
	case code == http.StatusTooManyRequests || code >= 500:
		return &transientError{errors.Errorf("weather server status=%d", code)}
	}
	return errors.Errorf("weather unexpected status=%d", code)
}

type apiResponse struct {
	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *float64 `json:"humidity"`
	} `json:"main"`
}

// Parse decodes OpenWeatherMap metric response body.
func Parse(body []byte, unit Unit) (Reading, error) {
	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return Reading{}, errors.NewNotValid(err, "weather response")
	}
	if ar.Main == nil {
		return Reading{}, errors.NotValidf("weather response main")
	}
	m := ar.Main
	switch {
	case m.Temp == nil:
		return Reading{}, errors.NotValidf("weather response main.temp")
	case m.FeelsLike == nil:
		return Reading{}, errors.NotValidf("weather response main.feels_like")
	case m.Humidity == nil:
		return Reading{}, errors.NotValidf("weather response main.humidity")
	}
	for _, v := range []struct {
		name string
		x    float64
	}{{"temp", *m.Temp}, {"feels_like", *m.FeelsLike}} {
		if math.IsNaN(v.x) || math.Abs(v.x) > maxCelsius {
			return Reading{}, errors.NotValidf("weather response main.%s=%v", v.name, v.x)
		}
	}
	if math.IsNaN(*m.Humidity) {
		return Reading{}, errors.NotValidf("weather response main.humidity=%v", *m.Humidity)
	}
	h := math.Min(math.Max(*m.Humidity, 0), 100)
	return Reading{
		Temperature: Convert(Round(*m.Temp), unit),
		FeelsLike:   Convert(Round(*m.FeelsLike), unit),
		Humidity:    uint(Round(h)),
		Unit:        unit,
	}, nil
}

// Round is half away from zero.
func Round(x float64) int { return int(math.Round(x)) }

// Convert rounded Celsius to unit.
func Convert(c int, unit Unit) int {
	if unit == Fahrenheit {
		return Round(float64(c)*9/5 + 32)
	}
	return c
}
