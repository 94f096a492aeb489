package events

import (
	"sync"

	"go.uber.org/zap"
)

// Handler processes one event. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Handler func(Event)

// Subscription is the handle returned by Subscribe, used to remove the
// handler again.
type Subscription struct {
	topic Topic
	id    uint64
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus is an in-process pub/sub channel for cashier sync events. Delivery
// is at-most-once and best-effort: there is no queueing and no retry. A
// panicking handler is recovered and logged so the remaining handlers on
// the topic still run.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscriber
	nextID uint64
	log    *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs: make(map[Topic][]subscriber),
		log:  log,
	}
}

// Subscribe registers handler for topic and returns its handle.
func (b *Bus) Subscribe(topic Topic, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[topic] = append(b.subs[topic], subscriber{id: b.nextID, handler: handler})

	return &Subscription{topic: topic, id: b.nextID}
}

// Unsubscribe removes the handler behind sub. Unknown handles are a
// no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.topic]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.topic] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Publish delivers evt to every current subscriber of its topic,
// synchronously and in subscription order.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	list := make([]subscriber, len(b.subs[evt.Topic()]))
	copy(list, b.subs[evt.Topic()])
	b.mu.RUnlock()

	for _, s := range list {
		b.dispatch(s, evt)
	}
}

func (b *Bus) dispatch(s subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("sync event handler panicked",
				zap.String("topic", string(evt.Topic())),
				zap.Any("panic", r),
			)
		}
	}()

	s.handler(evt)
}
