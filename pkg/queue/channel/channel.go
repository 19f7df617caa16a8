// Package channel provides the in-process broker used by single-process
// deployments and tests.
package channel

import (
	"context"
	"errors"
	"sync"

	"github.com/ravenoak/autoresearch-sub001/pkg/queue"
)

const defaultCapacity = 256

// Broker implements queue.Broker over a buffered channel.
type Broker struct {
	ch     chan queue.Message
	mu     sync.Mutex
	closed bool
}

// NewBroker creates a broker with the given buffer capacity
// (defaultCapacity when size <= 0).
func NewBroker(size int) *Broker {
	if size <= 0 {
		size = defaultCapacity
	}
	return &Broker{ch: make(chan queue.Message, size)}
}

// Put publishes a message, blocking while the buffer is full.
func (b *Broker) Put(ctx context.Context, msg queue.Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("put on closed broker")
	}
	b.mu.Unlock()

	select {
	case b.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the next message in arrival order.
func (b *Broker) Get(ctx context.Context) (queue.Message, error) {
	select {
	case msg, ok := <-b.ch:
		if !ok {
			return queue.Message{}, queue.ErrClosed
		}
		return msg, nil
	case <-ctx.Done():
		return queue.Message{}, ctx.Err()
	}
}

// Close stops the broker. Buffered messages remain retrievable until the
// channel drains, after which Get returns ErrClosed.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	return nil
}
