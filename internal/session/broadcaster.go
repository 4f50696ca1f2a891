package session

import (
	"sync"
)

// Broadcaster fans values out to subscribers without ever blocking the
// publisher. A subscriber whose buffer is full misses the value.
type Broadcaster[T any] struct {
	mu      sync.Mutex
	clients map[int]chan T
	nextID  int
	buffer  int
	closed  bool
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold
// buffer values.
func NewBroadcaster[T any](buffer int) *Broadcaster[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster[T]{
		clients: make(map[int]chan T),
		buffer:  buffer,
	}
}

// Subscribe adds a new client and returns its id and receive channel. The
// channel is closed by Unsubscribe or Close. Subscribing to a closed
// broadcaster returns an already closed channel.
func (b *Broadcaster[T]) Subscribe() (int, <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return -1, ch
	}

	id := b.nextID
	b.nextID++
	b.clients[id] = ch
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broadcaster[T]) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
	}
}

// Publish offers v to every subscriber and returns how many missed it.
func (b *Broadcaster[T]) Publish(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for _, ch := range b.clients {
		select {
		case ch <- v:
		default:
			dropped++
		}
	}
	return dropped
}

// Close closes every subscriber channel. Later publishes are discarded.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
}
