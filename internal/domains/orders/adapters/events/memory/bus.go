package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

var _ ports.EventPublisher = (*Bus)(nil)

// ErrBusStopped is returned by Publish after Stop.
var ErrBusStopped = errors.New("event bus stopped")

// Handler consumes one event.
type Handler func(ctx context.Context, event domain.Event) error

// Bus is an in-process, non-durable event bus with a buffered queue. Each
// event is fanned out to its subscribers with bounded concurrency.
type Bus struct {
	mu             sync.RWMutex
	subs           map[string][]Handler
	queue          chan domain.Event
	done           chan struct{}
	drained        chan struct{}
	startOnce      sync.Once
	stopOnce       sync.Once
	concurrency    int
	handlerTimeout time.Duration
	logger         *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bus{
		subs:           make(map[string][]Handler),
		queue:          make(chan domain.Event, 1024),
		done:           make(chan struct{}),
		drained:        make(chan struct{}),
		concurrency:    8,
		handlerTimeout: 30 * time.Second,
		logger:         logger.With(slog.String("component", "event_bus")),
	}
}

// Subscribe registers h for events named eventName.
func (b *Bus) Subscribe(eventName string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

// Start launches the dispatch loop.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		b.logger.InfoContext(ctx, "event bus started")
	})
}

// Stop rejects new events and waits for queued ones to be dispatched or ctx to end.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		close(b.done)
		// A bus that never started has nothing to drain.
		b.startOnce.Do(func() { close(b.drained) })
		drained := true
		select {
		case <-b.drained:
		case <-ctx.Done():
			drained = false
		}
		b.logger.InfoContext(ctx, "event bus stopped", slog.Bool("drained", drained))
	})
}

func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	if event == nil {
		return nil
	}
	select {
	case <-b.done:
		return ErrBusStopped
	default:
	}
	select {
	case b.queue <- event:
		return nil
	case <-b.done:
		return ErrBusStopped
	case <-ctx.Done():
		b.logger.WarnContext(ctx, "event enqueue aborted",
			slog.String("event", event.EventName()),
			slog.String("error", ctx.Err().Error()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.drained)
	for {
		select {
		case event := <-b.queue:
			b.fanout(ctx, event)
		case <-b.done:
			for {
				select {
				case event := <-b.queue:
					b.fanout(ctx, event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) fanout(ctx context.Context, event domain.Event) {
	name := event.EventName()

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.DebugContext(ctx, "event dropped without subscriber", slog.String("event", name))
		return
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup
	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					b.logger.ErrorContext(ctx, "event handler panic",
						slog.String("event", name),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()
			hctx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
			defer cancel()
			if err := h(hctx, event); err != nil {
				b.logger.WarnContext(ctx, "event handler error",
					slog.String("event", name),
					slog.String("event.id", event.EventID()),
					slog.String("error", err.Error()),
				)
			}
		}(h)
	}
	wg.Wait()
}
