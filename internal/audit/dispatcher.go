package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Config controls a Dispatcher.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit discard events instead of waiting for room.
	DropIfFull bool
	// Logger receives sink panics. Nil means slog.Default().
	Logger *slog.Logger
}

// Dispatcher hands events to a Sink on a single background goroutine so
// request paths never wait on audit I/O. A nil *Dispatcher discards
// everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	logger     *slog.Logger

	// mu orders Emit against Close: senders hold it shared, Close takes it
	// exclusively before closing queue.
	mu       sync.RWMutex
	shutdown bool
	queue    chan Event
	finished chan struct{}

	dropped atomic.Uint64
	panics  atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		logger:     logger,
		queue:      make(chan Event, size),
		finished:   make(chan struct{}),
	}
	go d.drain()
	return d
}

// drain runs until Close closes the queue and every buffered event is sent.
func (d *Dispatcher) drain() {
	defer close(d.finished)
	for event := range d.queue {
		d.forward(event)
	}
}

func (d *Dispatcher) forward(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.panics.Add(1)
			d.logger.Error("audit sink panicked", "event", event.EventType, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With DropIfFull it never blocks; otherwise it waits for
// room until ctx is done. Events emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.shutdown {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops intake, forwards what is buffered and returns once the worker
// has exited. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.shutdown {
		d.shutdown = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.finished
}

// Dropped returns how many events were discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// SinkPanics returns how many sink invocations panicked.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.panics.Load()
}
