package sim

import (
	"github.com/sasha-s/go-deadlock"
)

// Topic fans values out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the value.
type Topic[T any] struct {
	subscribers map[chan T]struct{}
	mutex       deadlock.Mutex
	buffer      int
}

func NewTopic[T any](buffer int) *Topic[T] {
	return &Topic[T]{
		subscribers: make(map[chan T]struct{}),
		buffer:      buffer,
	}
}

// Publish delivers value and returns how many subscribers missed it.
func (t *Topic[T]) Publish(value T) (dropped int) {
	t.mutex.Lock()
	for subscriber := range t.subscribers {
		select {
		case subscriber <- value:
		default:
			dropped++
		}
	}
	t.mutex.Unlock()
	return
}

type Subscriber[T any] struct {
	channel chan T
	topic   *Topic[T]
}

func (t *Topic[T]) Subscribe() *Subscriber[T] {
	channel := make(chan T, t.buffer)
	t.mutex.Lock()
	t.subscribers[channel] = struct{}{}
	t.mutex.Unlock()

	return &Subscriber[T]{channel, t}
}

func (t *Subscriber[T]) Recv() <-chan T {
	return t.channel
}

// Done unsubscribes and closes the channel.
func (t *Subscriber[T]) Done() {
	topic := t.topic
	topic.mutex.Lock()
	if _, ok := topic.subscribers[t.channel]; ok {
		delete(topic.subscribers, t.channel)
		close(t.channel)
	}
	topic.mutex.Unlock()
}
