package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"
)

type LivenessConfig struct {
	// SweepInterval is how often stale players are looked for.
	SweepInterval time.Duration `yaml:"sweepInterval"`

	// Timeout is how long a player may go without a heartbeat.
	Timeout time.Duration `yaml:"timeout"`
}

type WebSocketConfig struct {
	PingPeriod     time.Duration `yaml:"pingPeriod"`
	PongWait       time.Duration `yaml:"pongWait"`
	WriteWait      time.Duration `yaml:"writeWait"`
	SendBuffer     int           `yaml:"sendBuffer"`
	MaxMessageSize int64         `yaml:"maxMessageSize"`
}

type Config struct {
	Port            string          `yaml:"port"`
	FrontendHost    string          `yaml:"frontendHost"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	Liveness        LivenessConfig  `yaml:"liveness"`
	WebSocket       WebSocketConfig `yaml:"websocket"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Port:            "8000",
		ShutdownTimeout: 10 * time.Second,
		Liveness: LivenessConfig{
			SweepInterval: 5 * time.Second,
			Timeout:       25 * time.Second,
		},
		WebSocket: WebSocketConfig{
			PingPeriod:     20 * time.Second,
			PongWait:       60 * time.Second,
			WriteWait:      10 * time.Second,
			SendBuffer:     16,
			MaxMessageSize: 4096,
		},
	}
}

// ParseConfig reads a YAML config file over the defaults. An empty path
// returns the defaults.
func ParseConfig(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	configFile, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(configFile, config); err != nil {
		return nil, fmt.Errorf("unable to parse yaml config: %w", err)
	}
	return config, nil
}

// Validate checks the config is usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must be set")
	}
	durations := map[string]time.Duration{
		"shutdownTimeout":        c.ShutdownTimeout,
		"liveness.sweepInterval": c.Liveness.SweepInterval,
		"liveness.timeout":       c.Liveness.Timeout,
		"websocket.pingPeriod":   c.WebSocket.PingPeriod,
		"websocket.pongWait":     c.WebSocket.PongWait,
		"websocket.writeWait":    c.WebSocket.WriteWait,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.Liveness.Timeout <= c.Liveness.SweepInterval {
		return fmt.Errorf("liveness.timeout (%s) must be longer than liveness.sweepInterval (%s)",
			c.Liveness.Timeout, c.Liveness.SweepInterval)
	}
	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return fmt.Errorf("websocket.pingPeriod (%s) must be shorter than websocket.pongWait (%s)",
			c.WebSocket.PingPeriod, c.WebSocket.PongWait)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return errors.New("websocket.sendBuffer must be positive")
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		return errors.New("websocket.maxMessageSize must be positive")
	}
	return nil
}
