// Package bus fans out event records to subscribers.
package bus

import (
	"sync"

	"github.com/filepulse/filepulse/pkg/logger"
	"github.com/filepulse/filepulse/pkg/models"
	"go.uber.org/zap"
)

// Subscriber receives every published event record
type Subscriber interface {
	OnEvent(event models.EventRecord)
}

// SubscriberFunc adapts a plain function to Subscriber
type SubscriberFunc func(event models.EventRecord)

// OnEvent calls f(event)
func (f SubscriberFunc) OnEvent(event models.EventRecord) {
	f(event)
}

type entry struct {
	id  uint64
	sub Subscriber
}

// EventBus delivers records synchronously, in subscription order, on the
// publisher's goroutine. The subscriber list is copy-on-write so Publish never
// holds the lock while a subscriber runs.
type EventBus struct {
	mu     sync.Mutex
	subs   []entry
	nextID uint64
	logger *zap.Logger
}

// New creates an empty bus. A nil logger uses the global one.
func New(l *zap.Logger) *EventBus {
	if l == nil {
		l = logger.Get()
	}
	return &EventBus{logger: l}
}

// Subscribe registers sub and returns a function removing it again.
// The returned function is safe to call more than once.
func (b *EventBus) Subscribe(sub Subscriber) (unsubscribe func()) {
	if sub == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	subs := make([]entry, len(b.subs), len(b.subs)+1)
	copy(subs, b.subs)
	b.subs = append(subs, entry{id: id, sub: sub})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// SubscribeFunc registers a plain function
func (b *EventBus) SubscribeFunc(fn func(models.EventRecord)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	return b.Subscribe(SubscriberFunc(fn))
}

func (b *EventBus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := make([]entry, 0, len(b.subs))
	for _, e := range b.subs {
		if e.id != id {
			subs = append(subs, e)
		}
	}
	b.subs = subs
}

// Publish hands event to every current subscriber
func (b *EventBus) Publish(event models.EventRecord) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()

	for _, e := range subs {
		b.deliver(e.sub, event)
	}
}

func (b *EventBus) deliver(sub Subscriber, event models.EventRecord) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Subscriber panicked",
				zap.Any("panic", r),
				zap.String("path", event.FilePath),
				zap.String("kind", event.Kind.String()),
			)
		}
	}()
	sub.OnEvent(event)
}

// Len returns the number of subscribers
func (b *EventBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
