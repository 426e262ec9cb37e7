package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
	_ "github.com/trickstertwo/xlog/adapter/zerolog"

	"github.com/trickstertwo/xcheckout"
	"github.com/trickstertwo/xcheckout/adapter/awsbridge"
	"github.com/trickstertwo/xcheckout/adapter/awssqs"
	"github.com/trickstertwo/xcheckout/adapter/memory"
	"github.com/trickstertwo/xcheckout/adapter/redisstream"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := xlog.New().With(xlog.FStr("app", "xcheckoutd"))
	clock := xclock.Default()

	bus, queue, err := buildTransports(ctx, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build transports")
		os.Exit(1)
	}

	ck, err := xcheckout.NewBuilder().
		WithBus(bus).
		WithQueue(queue).
		WithLogger(logger).
		WithClock(clock).
		WithPublisherConfig(xcheckout.PublisherConfig{
			BusName: env("EVENT_BUS_NAME", "status-pedido-bus"),
			Source:  xcheckout.SourceCheckout,
		}).
		WithConsumerConfig(xcheckout.ConsumerConfig{
			QueueURL:     env("QUEUE_URL", "checkout-events-queue"),
			MaxMessages:  envInt("CONSUMER_MAX_MESSAGES", 10),
			WaitTime:     envDuration("CONSUMER_WAIT_TIME", 20*time.Second),
			PollInterval: envDuration("CONSUMER_POLL_INTERVAL", time.Second),
		}).
		WithMiddleware(xcheckout.TimeoutMiddleware(10 * time.Second)).
		WithObserver(xcheckout.LoggingObserver{Logger: logger}).
		Handle(xcheckout.EventPaymentProcessed, logEventHandler(logger, "payment processed")).
		Handle(xcheckout.EventCheckoutCreated, logEventHandler(logger, "checkout created")).
		Handle(xcheckout.EventCheckoutCompleted, logEventHandler(logger, "checkout completed")).
		Handle(xcheckout.EventCheckoutCancelled, logEventHandler(logger, "checkout cancelled")).
		Handle(xcheckout.EventFileUploaded, logEventHandler(logger, "file uploaded")).
		Handle(xcheckout.EventFileProcessed, logEventHandler(logger, "file processed")).
		Build()
	if err != nil {
		logger.Error().Err(err).Msg("failed to build checkout")
		os.Exit(1)
	}
	xcheckout.SetDefault(ck)

	if err := ck.Consumer().Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to start consumer")
		os.Exit(1)
	}

	app := newServer(ck, logger)

	// Graceful shutdown on SIGINT/SIGTERM: stop taking requests, let the
	// in-flight poll finish, release the transports.
	go func() {
		sigC := make(chan os.Signal, 1)
		signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
		<-sigC
		logger.Info().Msg("shutting down")
		cancel()
		_ = ck.Close(context.Background())
		_ = app.Shutdown()
	}()

	addr := ":" + env("PORT", "8080")
	logger.Info().Str("addr", addr).Msg("xcheckoutd listening")
	if err := app.Listen(addr); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

// logEventHandler is the reference behavior for inbound events: decode, log,
// acknowledge. Business reactions hang off these hooks service by service.
func logEventHandler(logger *xlog.Logger, msg string) xcheckout.Handler {
	return func(_ context.Context, evt xcheckout.Envelope) error {
		logger.Info().
			Str("event_id", evt.EventID).
			Str("event_type", evt.EventType).
			Str("source", evt.Source).
			Str("payload", string(evt.Payload)).
			Msg(msg)
		return nil
	}
}

// buildTransports selects the bus/queue backend from CHECKOUT_BACKEND:
// "aws" (EventBridge + SQS), "redis" (one Redis stream), or "memory"
// (in-process loopback: published events come straight back to the
// consumer, handy for local development).
func buildTransports(ctx context.Context, logger *xlog.Logger) (xcheckout.Bus, xcheckout.Queue, error) {
	backend := env("CHECKOUT_BACKEND", "memory")
	logger.Info().Str("backend", backend).Msg("selecting transports")

	switch backend {
	case "aws":
		bus, err := awsbridge.NewFromEnv(ctx)
		if err != nil {
			return nil, nil, err
		}
		queue, err := awssqs.NewFromEnv(ctx, env("QUEUE_URL", ""))
		if err != nil {
			return nil, nil, err
		}
		return bus, queue, nil

	case "redis":
		cfg := redisstream.Defaults()
		cfg.Addr = env("REDIS_ADDR", cfg.Addr)
		cfg.Password = env("REDIS_PASSWORD", "")
		cfg.DB = envInt("REDIS_DB", 0)
		cfg.Stream = env("REDIS_STREAM", cfg.Stream)
		bus, err := redisstream.NewBus(cfg)
		if err != nil {
			return nil, nil, err
		}
		queue, err := redisstream.NewQueue(cfg)
		if err != nil {
			return nil, nil, err
		}
		return bus, queue, nil

	case "memory":
		queue := memory.NewQueue(memory.Defaults())
		bus := memory.NewBus(memory.WithForward(queue))
		return bus, queue, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
