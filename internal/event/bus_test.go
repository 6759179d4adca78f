package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HerbHall/fleetmap/pkg/plugin"
	"go.uber.org/zap"
)

func TestPublish_DeliversToTopicAndWildcard(t *testing.T) {
	b := NewBus(zap.NewNop())
	var topicHits, allHits int
	b.Subscribe("inventory.dashboard_update", func(context.Context, plugin.Event) { topicHits++ })
	b.Subscribe("inventory.visualizer_refresh", func(context.Context, plugin.Event) { t.Error("wrong topic delivered") })
	b.SubscribeAll(func(context.Context, plugin.Event) { allHits++ })

	err := b.Publish(context.Background(), plugin.Event{Topic: "inventory.dashboard_update", Source: "inventory"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if topicHits != 1 || allHits != 1 {
		t.Errorf("topicHits=%d allHits=%d, want 1 and 1", topicHits, allHits)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus(zap.NewNop())
	var hits int
	unsub := b.Subscribe("t", func(context.Context, plugin.Event) { hits++ })
	unsubAll := b.SubscribeAll(func(context.Context, plugin.Event) { hits++ })
	unsub()
	unsubAll()

	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})
	if hits != 0 {
		t.Errorf("hits = %d after unsubscribe, want 0", hits)
	}
}

func TestPublish_PanicIsolated(t *testing.T) {
	b := NewBus(zap.NewNop())
	var reached bool
	b.Subscribe("t", func(context.Context, plugin.Event) { panic("boom") })
	b.Subscribe("t", func(context.Context, plugin.Event) { reached = true })

	if err := b.Publish(context.Background(), plugin.Event{Topic: "t"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !reached {
		t.Error("second handler not called after first panicked")
	}
}

func TestPublishAsync_CloseWaitsForHandlers(t *testing.T) {
	b := NewBus(zap.NewNop())
	var done atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	for range 3 {
		b.Subscribe("t", func(context.Context, plugin.Event) {
			defer wg.Done()
			time.Sleep(10 * time.Millisecond)
			done.Add(1)
		})
	}

	b.PublishAsync(context.Background(), plugin.Event{Topic: "t"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := done.Load(); got != 3 {
		t.Errorf("completed handlers = %d, want 3", got)
	}
	wg.Wait()
}

func TestPublish_AfterClose(t *testing.T) {
	b := NewBus(zap.NewNop())
	var hits int
	b.Subscribe("t", func(context.Context, plugin.Event) { hits++ })
	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := b.Publish(context.Background(), plugin.Event{Topic: "t"})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Close = %v, want ErrClosed", err)
	}
	b.PublishAsync(context.Background(), plugin.Event{Topic: "t"})
	if hits != 0 {
		t.Errorf("hits = %d after Close, want 0", hits)
	}
}
