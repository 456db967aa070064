package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hushlight/log"
)

// Sink delivers one record. A sink with no connectivity returns nil.
type Sink interface {
	Name() string
	Publish(ctx context.Context, r Record) error
}

const (
	DefaultQueueSize = 32
	PublishTimeout   = 5 * time.Second
)

// Dispatcher decouples the control loop from network I/O. Send never blocks:
// when the queue is full the record is dropped.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Record
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
	failed  atomic.Uint64

	// OnResult, if set, is called from the worker after each publish.
	OnResult func(sink string, err error)
}

func NewDispatcher(size int, sinks ...Sink) *Dispatcher {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Record, size),
		timeout: PublishTimeout,
	}
}

// Start runs the worker until Close.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for r := range d.queue {
			d.deliver(ctx, r)
		}
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, r Record) {
	for _, s := range d.sinks {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		err := s.Publish(pctx, r)
		cancel()
		if err != nil {
			d.failed.Add(1)
			log.SinkError(s.Name(), err)
		}
		if d.OnResult != nil {
			d.OnResult(s.Name(), err)
		}
	}
}

func (d *Dispatcher) Send(r Record) bool {
	if len(d.sinks) == 0 || d.closed.Load() {
		return false
	}
	select {
	case d.queue <- r:
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

// Close stops accepting records and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }
func (d *Dispatcher) Failed() uint64  { return d.failed.Load() }
