package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/filepulse/filepulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	events []models.EventRecord
}

func (r *recorder) OnEvent(e models.EventRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func sample(name string) models.EventRecord {
	return models.NewEventRecord(models.EventCreated, "/d/"+name, time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local))
}

func TestPublishReachesAllSubscribersInOrder(t *testing.T) {
	b := New(zap.NewNop())

	var order []string
	b.SubscribeFunc(func(models.EventRecord) { order = append(order, "first") })
	b.SubscribeFunc(func(models.EventRecord) { order = append(order, "second") })

	b.Publish(sample("a.txt"))

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 2, b.Len())
}

func TestUnsubscribe(t *testing.T) {
	b := New(zap.NewNop())
	r := &recorder{}

	unsubscribe := b.Subscribe(r)
	b.Publish(sample("a.txt"))
	unsubscribe()
	unsubscribe()
	b.Publish(sample("b.txt"))

	assert.Equal(t, 1, r.count())
	assert.Equal(t, 0, b.Len())
}

func TestNilSubscriberIgnored(t *testing.T) {
	b := New(zap.NewNop())

	b.Subscribe(nil)()
	b.SubscribeFunc(nil)()

	assert.Equal(t, 0, b.Len())
	assert.NotPanics(t, func() { b.Publish(sample("a.txt")) })
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	b := New(zap.NewNop())
	r := &recorder{}

	b.SubscribeFunc(func(models.EventRecord) { panic("boom") })
	b.Subscribe(r)

	require.NotPanics(t, func() { b.Publish(sample("a.txt")) })
	assert.Equal(t, 1, r.count())
}

func TestSubscribeDuringPublish(t *testing.T) {
	b := New(zap.NewNop())
	r := &recorder{}

	b.SubscribeFunc(func(models.EventRecord) {
		b.Subscribe(r)
	})

	// the subscriber added mid-publish only sees later events
	b.Publish(sample("a.txt"))
	assert.Equal(t, 0, r.count())

	b.Publish(sample("b.txt"))
	assert.Equal(t, 1, r.count())
}

func TestConcurrentPublish(t *testing.T) {
	b := New(zap.NewNop())
	r := &recorder{}
	b.Subscribe(r)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(sample("x.txt"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, r.count())
}
