package xcheckout

import (
	"context"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Checkout is the assembled core: the dispatch path and the consumer loop
// sharing one codec, clock and logger. The two paths are independent; they
// touch no shared mutable state beyond the bus and queue endpoints.
type Checkout struct {
	dispatcher *Dispatcher
	publisher  *Publisher
	consumer   *Consumer
	bus        Bus
	queue      Queue
	clock      xclock.Clock
}

// Dispatcher returns the payment dispatch entry point.
func (c *Checkout) Dispatcher() *Dispatcher { return c.dispatcher }

// Publisher returns the event publisher.
func (c *Checkout) Publisher() *Publisher { return c.publisher }

// Consumer returns the queue consumer, or nil when no queue was configured.
func (c *Checkout) Consumer() *Consumer { return c.consumer }

// Clock returns the clock shared by every component.
func (c *Checkout) Clock() xclock.Clock { return c.clock }

// Pay dispatches one payment request.
func (c *Checkout) Pay(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	return c.dispatcher.Execute(ctx, req)
}

// Close stops the consumer and releases the transports.
func (c *Checkout) Close(ctx context.Context) error {
	if c.consumer != nil {
		c.consumer.Stop()
	}
	var firstErr error
	if c.queue != nil {
		if err := c.queue.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if c.bus != nil {
		if err := c.bus.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Builder constructs Checkout instances (Builder pattern).
type Builder struct {
	bus   Bus
	queue Queue

	registry *Registry

	publisherCfg *PublisherConfig
	consumerCfg  *ConsumerConfig

	codecName string
	codecInst Codec

	handlers    map[string]Handler
	middlewares []Middleware
	observers   []Observer

	logger *xlog.Logger
	clock  xclock.Clock
}

// NewBuilder returns a builder with sensible defaults: JSON codec, the
// default strategy registry, and the reference publisher/consumer settings.
func NewBuilder() *Builder {
	return &Builder{
		codecName: "json",
		handlers:  map[string]Handler{},
	}
}

// WithBus supplies the external event bus. Required.
func (b *Builder) WithBus(bus Bus) *Builder {
	b.bus = bus
	return b
}

// WithQueue supplies the queue the consumer drains. Optional: without it the
// build yields a dispatch-only checkout.
func (b *Builder) WithQueue(q Queue) *Builder {
	b.queue = q
	return b
}

// WithRegistry replaces the default strategy registry.
func (b *Builder) WithRegistry(r *Registry) *Builder {
	b.registry = r
	return b
}

// WithPublisherConfig overrides the publisher settings.
func (b *Builder) WithPublisherConfig(cfg PublisherConfig) *Builder {
	b.publisherCfg = &cfg
	return b
}

// WithConsumerConfig overrides the consumer settings.
func (b *Builder) WithConsumerConfig(cfg ConsumerConfig) *Builder {
	b.consumerCfg = &cfg
	return b
}

// WithCodec selects a registered codec by name (default: json).
func (b *Builder) WithCodec(name string) *Builder {
	b.codecName = name
	return b
}

// WithCodecInstance accepts a ready Codec instance.
func (b *Builder) WithCodecInstance(c Codec) *Builder {
	b.codecInst = c
	return b
}

// Handle registers a consumer handler for an event type.
func (b *Builder) Handle(eventType string, h Handler) *Builder {
	if eventType != "" && h != nil {
		b.handlers[eventType] = h
	}
	return b
}

// WithMiddleware adds consumer handler middlewares.
func (b *Builder) WithMiddleware(mw ...Middleware) *Builder {
	b.middlewares = append(b.middlewares, mw...)
	return b
}

// WithObserver attaches observers for lifecycle events.
func (b *Builder) WithObserver(obs ...Observer) *Builder {
	for _, o := range obs {
		if o != nil {
			b.observers = append(b.observers, o)
		}
	}
	return b
}

func (b *Builder) WithLogger(l *xlog.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithClock(c xclock.Clock) *Builder {
	b.clock = c
	return b
}

func (b *Builder) Build() (*Checkout, error) {
	if b.bus == nil {
		return nil, ErrNoBusConfigured
	}

	var cd Codec
	var err error
	if b.codecInst != nil {
		cd = b.codecInst
	} else {
		cd, err = NewCodec(b.codecName)
		if err != nil {
			return nil, err
		}
	}

	clk := b.clock
	if clk == nil {
		clk = xclock.Default()
	}
	lg := b.logger
	if lg == nil {
		lg = xlog.Default()
	}

	reg := b.registry
	if reg == nil {
		reg = DefaultRegistry(clk, lg)
	}

	pubCfg := PublisherDefaults()
	if b.publisherCfg != nil {
		pubCfg = *b.publisherCfg
	}
	pub, err := NewPublisher(b.bus, pubCfg, cd, clk, lg)
	if err != nil {
		return nil, err
	}
	pub.observers = b.observers

	disp := NewDispatcher(reg, pub, clk, lg)
	disp.observers = b.observers

	ck := &Checkout{dispatcher: disp, publisher: pub, bus: b.bus, queue: b.queue, clock: clk}

	if b.queue != nil {
		conCfg := ConsumerDefaults()
		if b.consumerCfg != nil {
			conCfg = *b.consumerCfg
		}
		con, err := NewConsumer(b.queue, conCfg, cd, clk, lg)
		if err != nil {
			return nil, err
		}
		for et, h := range b.handlers {
			con.Handle(et, h)
		}
		con.Use(b.middlewares...)
		con.observers = b.observers
		ck.consumer = con
	}

	return ck, nil
}
