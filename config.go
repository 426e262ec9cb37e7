package xcheckout

import (
	"fmt"
	"time"
)

// sqsMaxBatch is the hard per-poll message cap imposed by SQS-shaped queues.
const sqsMaxBatch = 10

// PublisherConfig is the immutable configuration for the event publisher.
type PublisherConfig struct {
	// BusName is the logical event bus events are routed to.
	BusName string
	// Source identifies this service on published events.
	Source string
}

// PublisherDefaults returns a PublisherConfig with the reference settings.
func PublisherDefaults() PublisherConfig {
	return PublisherConfig{
		BusName: "status-pedido-bus",
		Source:  SourceCheckout,
	}
}

func (c PublisherConfig) Validate() error {
	if c.BusName == "" {
		return fmt.Errorf("publisher config: bus name required")
	}
	if c.Source == "" {
		return fmt.Errorf("publisher config: source required")
	}
	return nil
}

// ConsumerConfig is the immutable configuration for the poll loop.
type ConsumerConfig struct {
	// QueueURL is the endpoint of the queue being drained.
	QueueURL string
	// MaxMessages is the per-poll batch cap (1..10).
	MaxMessages int
	// WaitTime bounds the long poll; zero means the backend returns
	// immediately when the queue is empty.
	WaitTime time.Duration
	// PollInterval is the fixed delay between poll ticks.
	PollInterval time.Duration
}

// ConsumerDefaults returns a ConsumerConfig with the reference settings:
// 20s long polling, batches of 10, one tick per second.
func ConsumerDefaults() ConsumerConfig {
	return ConsumerConfig{
		MaxMessages:  sqsMaxBatch,
		WaitTime:     20 * time.Second,
		PollInterval: time.Second,
	}
}

func (c ConsumerConfig) Validate() error {
	if c.MaxMessages < 1 || c.MaxMessages > sqsMaxBatch {
		return fmt.Errorf("consumer config: max_messages must be in [1,%d], got %d", sqsMaxBatch, c.MaxMessages)
	}
	if c.WaitTime < 0 {
		return fmt.Errorf("consumer config: wait_time must be >= 0, got %v", c.WaitTime)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("consumer config: poll_interval must be > 0, got %v", c.PollInterval)
	}
	return nil
}
