package ludserver

import (
	"fmt"
	"time"

	"github.com/horgh/config"
)

// Config holds a server's configuration.
type Config struct {
	ListenHost string
	ListenPort string
	ServerName string
	Version    string

	// Message of the day. Blank means the server has none.
	MOTD string

	// Period of time to wait before waking the event loop up (maximum).
	WakeupTime time.Duration

	// Period of time a client can be idle before we send it a PING.
	PingTime time.Duration

	// Period of time to wait for a PONG before we consider the client dead.
	PongTime time.Duration

	// Period of time any single socket read or write may block.
	IOWaitTime time.Duration
}

// withDefaults fills every unset field with its default.
//
// The default listen host is the IPv6 wildcard, which on a dual stack host
// accepts IPv4 connections as well.
func (c Config) withDefaults() Config {
	if c.ListenHost == "" {
		c.ListenHost = "::"
	}
	if c.ListenPort == "" {
		c.ListenPort = "6667"
	}
	if c.ServerName == "" {
		c.ServerName = "LudServer"
	}
	if c.Version == "" {
		c.Version = "LudServer1.0"
	}
	if c.WakeupTime == 0 {
		c.WakeupTime = 20 * time.Second
	}
	if c.PingTime == 0 {
		c.PingTime = 90 * time.Second
	}
	if c.PongTime == 0 {
		c.PongTime = 15 * time.Second
	}
	if c.IOWaitTime == 0 {
		c.IOWaitTime = 5 * time.Minute
	}
	return c
}

// LoadConfig reads a configuration file and checks the values are in an
// acceptable format. Every key is optional. A blank filename gives the
// default configuration.
func LoadConfig(file string) (Config, error) {
	var cfg Config

	if file == "" {
		return cfg.withDefaults(), nil
	}

	configMap, err := config.ReadStringMap(file)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %s", err)
	}

	cfg.ListenHost = configMap["listen-host"]
	cfg.ListenPort = configMap["listen-port"]
	cfg.ServerName = configMap["server-name"]
	cfg.Version = configMap["version"]
	cfg.MOTD = configMap["motd"]

	durations := []struct {
		key  string
		into *time.Duration
	}{
		{"wakeup-time", &cfg.WakeupTime},
		{"ping-time", &cfg.PingTime},
		{"pong-time", &cfg.PongTime},
		{"io-wait-time", &cfg.IOWaitTime},
	}

	for _, d := range durations {
		v, exists := configMap[d.key]
		if !exists || v == "" {
			continue
		}

		*d.into, err = time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s is in invalid format: %s", d.key,
				err)
		}
	}

	return cfg.withDefaults(), nil
}
