package xcheckout

import (
	"time"

	"github.com/trickstertwo/xlog"
)

// LifecycleType enumerates internal lifecycle events for the Observer pattern.
type LifecycleType string

const (
	DispatchStart LifecycleType = "dispatch_start"
	DispatchDone  LifecycleType = "dispatch_done"
	PublishDone   LifecycleType = "publish_done"
	PollDone      LifecycleType = "poll_done"
	MessageDone   LifecycleType = "message_done"
)

// Lifecycle carries telemetry for observers.
type Lifecycle struct {
	Type      LifecycleType
	Method    PaymentMethod
	EventType string
	MessageID string
	Batch     int
	Duration  time.Duration
	Err       error
}

// Observer receives lifecycle events. Implementations should be non-blocking;
// they run inline on the dispatch and poll paths.
type Observer interface {
	OnLifecycle(e Lifecycle)
}

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e Lifecycle)

func (f ObserverFunc) OnLifecycle(e Lifecycle) { f(e) }

// LoggingObserver is an Adapter that emits lifecycle events via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnLifecycle(e Lifecycle) {
	if o.Logger == nil {
		return
	}
	ev := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("method", e.Method.String()),
		xlog.Str("event_type", e.EventType),
		xlog.Str("message_id", e.MessageID),
	)
	if e.Err != nil {
		ev.Warn().Err(e.Err).Msg("xcheckout event")
		return
	}
	if e.Duration > 0 {
		ev = ev.With(xlog.Dur("duration", e.Duration))
	}
	ev.Debug().Msg("xcheckout event")
}

// notifier is embedded by components that emit lifecycle events. Observers
// are fixed at build time, so no locking is needed.
type notifier struct {
	observers []Observer
}

func (n *notifier) notify(e Lifecycle) {
	for _, o := range n.observers {
		if o == nil {
			continue
		}
		func() {
			defer func() {
				// An observer panic must not reach the dispatch/poll path.
				_ = recover()
			}()
			o.OnLifecycle(e)
		}()
	}
}
