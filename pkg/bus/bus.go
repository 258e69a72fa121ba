// Package bus carries freshly appended transcript entries from the pipeline
// or the translation service to whoever renders them live.
package bus

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/miniheartx/heartx/pkg/session"
)

var (
	ErrBusClosed = errors.New("entry bus closed")
	ErrBusFull   = errors.New("entry bus full")
)

const defaultBuffer = 100

type EntryBus struct {
	entries chan session.Entry
	done    chan struct{}
	closed  atomic.Bool
	dropped atomic.Int64
}

func NewEntryBus() *EntryBus {
	return NewEntryBusSize(defaultBuffer)
}

func NewEntryBusSize(buffer int) *EntryBus {
	if buffer < 1 {
		buffer = 1
	}
	return &EntryBus{
		entries: make(chan session.Entry, buffer),
		done:    make(chan struct{}),
	}
}

// Publish blocks until the entry is queued, the bus closes or ctx ends.
func (b *EntryBus) Publish(ctx context.Context, e session.Entry) error {
	if err := b.publishStateErr(ctx); err != nil {
		return err
	}
	select {
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	case b.entries <- e:
		return nil
	}
}

// TryPublish queues e without blocking. A full buffer drops the entry and
// returns ErrBusFull; the transcript itself is unaffected.
func (b *EntryBus) TryPublish(e session.Entry) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	select {
	case <-b.done:
		return ErrBusClosed
	case b.entries <- e:
		return nil
	default:
		b.dropped.Add(1)
		return ErrBusFull
	}
}

func (b *EntryBus) Consume(ctx context.Context) (session.Entry, bool) {
	select {
	case e, ok := <-b.entries:
		return e, ok
	case <-b.done:
		return session.Entry{}, false
	case <-ctx.Done():
		return session.Entry{}, false
	}
}

// Drain returns the entries still buffered without waiting for more. After
// Close it recovers what Consume did not get to.
func (b *EntryBus) Drain() []session.Entry {
	var out []session.Entry
	for {
		select {
		case e := <-b.entries:
			out = append(out, e)
		default:
			return out
		}
	}
}

// Dropped counts entries TryPublish discarded.
func (b *EntryBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *EntryBus) publishStateErr(ctx context.Context) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	return ctx.Err()
}

func (b *EntryBus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.done)
	}
}
