// Package broker is an in-memory fan-out for repository states.
package broker

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// DefaultChannelSize is the per-subscriber buffer when none is configured.
const DefaultChannelSize = 16

// Broker distributes values to subscribers without blocking the publisher.
// A subscriber whose buffer is full misses the value.
type Broker[T any] struct {
	mu          sync.RWMutex
	subs        map[*Subscription[T]]struct{}
	channelSize int
	closed      bool

	published atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
}

// Subscription receives published values on C until it is unsubscribed or
// the broker is closed.
type Subscription[T any] struct {
	C chan T
}

// Stats is a snapshot of broker counters.
type Stats struct {
	ActiveSubscribers int   `json:"active_subscribers"`
	TotalPublished    int64 `json:"total_published"`
	TotalDelivered    int64 `json:"total_delivered"`
	TotalDropped      int64 `json:"total_dropped"`
}

func New[T any](channelSize int) *Broker[T] {
	if channelSize <= 0 {
		channelSize = DefaultChannelSize
	}
	return &Broker[T]{
		subs:        make(map[*Subscription[T]]struct{}),
		channelSize: channelSize,
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed broker
// returns an already closed subscription.
func (b *Broker[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription[T]{C: make(chan T, b.channelSize)}
	if b.closed {
		close(sub.C)
		return sub
	}
	b.subs[sub] = struct{}{}

	log.Debug().Int("total_subs", len(b.subs)).Msg("broker: new subscription")
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call more
// than once.
func (b *Broker[T]) Unsubscribe(sub *Subscription[T]) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.C)

	log.Debug().Int("total_subs", len(b.subs)).Msg("broker: unsubscribed")
}

// Publish offers v to every subscriber.
func (b *Broker[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.published.Add(1)
	for sub := range b.subs {
		select {
		case sub.C <- v:
			b.delivered.Add(1)
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *Broker[T]) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Stats{
		ActiveSubscribers: len(b.subs),
		TotalPublished:    b.published.Load(),
		TotalDelivered:    b.delivered.Load(),
		TotalDropped:      b.dropped.Load(),
	}
}

// Close closes every subscription. Later publishes are no-ops.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.C)
	}
	b.subs = make(map[*Subscription[T]]struct{})

	log.Info().Msg("broker closed")
}
