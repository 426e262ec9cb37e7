package redisstream

import (
	"fmt"
	"os"
)

// Config for the Redis Streams bus/queue backend.
type Config struct {
	// Connection
	Addr          string
	Username      string
	Password      string
	DB            int
	TLS           bool
	TLSServerName string

	// Stream is the stream events are appended to and received from.
	Stream string
	// Group/Consumer identify this service in the consumer group.
	Group    string
	Consumer string
	// AutoCreate creates the stream and group on first use.
	AutoCreate bool
	// MaxLenApprox bounds the stream with approximate trimming (0 = unbounded).
	MaxLenApprox int64
}

// Defaults returns a Config with production-safe defaults.
func Defaults() Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "xcheckout"
	}

	return Config{
		Addr:       "127.0.0.1:6379",
		Stream:     "checkout-events",
		Group:      "xcheckout",
		Consumer:   fmt.Sprintf("xcheckout-%s-%d", hostname, os.Getpid()),
		AutoCreate: true,
	}
}

// Validate checks Config for production readiness.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr required")
	}
	if c.Stream == "" {
		return fmt.Errorf("config: stream required")
	}
	if c.Group == "" {
		return fmt.Errorf("config: group required")
	}
	if c.Consumer == "" {
		return fmt.Errorf("config: consumer required")
	}
	return nil
}
