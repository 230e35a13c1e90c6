package bus

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	dombus "github.com/pivend/vend/internal/domain/bus"
	"github.com/pivend/vend/internal/observability"
	"github.com/pivend/vend/internal/observability/logctx"
)

const (
	componentBus   = "event_bus"
	handlerTimeout = 30 * time.Second
)

// ErrClosed is returned by Publish once the bus has been stopped.
var ErrClosed = errors.New("bus: closed")

// Bus is an in-memory event bus for single-process fanout. It is not durable;
// a real deployment fleet would persist events and dispatch from a worker.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]dombus.Handler
	queue       chan dombus.Event
	startOnce   sync.Once
	stopOnce    sync.Once
	closed      bool
	cancel      context.CancelFunc
	concurrency int
	log         observability.Logger
}

func New(logger observability.Logger) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Bus{
		subs:        make(map[string][]dombus.Handler),
		queue:       make(chan dombus.Event, 1024), // buffer for backpressure
		concurrency: 8,                             // per-event handler fanout cap
		log:         logger.With(observability.F("component", componentBus)),
	}
}

func (b *Bus) Subscribe(eventName string, h dombus.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(ctx)
		b.cancel = cancel
		go b.dispatchLoop(bg)
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop marks the bus closed and cancels the dispatch loop. The queue channel
// is never closed so a racing Publish cannot panic; late events are refused
// with ErrClosed instead.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		if b.cancel != nil {
			b.cancel()
		}
		logctx.FromOr(ctx, b.log).Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e dombus.Event) error {
	if e == nil {
		return nil
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		logctx.FromOr(ctx, b.log).Warn("event_refused_bus_closed",
			observability.F("event", e.EventName()),
		)
		return ErrClosed
	}

	select {
	case b.queue <- e:
		return nil
	case <-ctx.Done():
		logctx.FromOr(ctx, b.log).Warn("event_enqueue_aborted",
			observability.F("event", e.EventName()),
			observability.F("error", ctx.Err().Error()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.queue:
			b.fanout(ctx, e)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e dombus.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]dombus.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", observability.F("event", name))
		return
	}

	ctx = context.WithoutCancel(ctx)
	ctx = logctx.With(ctx, b.log)

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		h := h
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event_handler_panic",
						observability.F("event", name),
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			err := h(hctx, e)
			cancel()
			if err != nil {
				b.log.Warn("event_handler_error",
					observability.F("event", name),
					observability.F("error", err.Error()),
				)
			}
		}()
	}

	wg.Wait()
}
