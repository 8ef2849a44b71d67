package bus

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/realtime"
)

func TestMemoryBusDelivers(t *testing.T) {
	b := NewMemoryBus()
	var got []realtime.Event
	if err := b.StartForwarder(context.Background(), func(ev realtime.Event) { got = append(got, ev) }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := b.Publish(context.Background(), realtime.Event{Type: realtime.EventLessonPublished, LessonID: "l1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 || got[0].LessonID != "l1" {
		t.Fatalf("delivered: got=%v", got)
	}
	_ = b.Close()
	_ = b.Publish(context.Background(), realtime.Event{Type: realtime.EventLessonDeleted})
	if len(got) != 1 {
		t.Fatalf("closed bus delivered: got=%d", len(got))
	}
	if err := b.StartForwarder(context.Background(), nil); err == nil {
		t.Fatalf("nil callback should fail")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	defer rdb.Close()

	b, err := NewRedisBus(logger.Nop(), rdb, "test-lesson-events")
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan realtime.Event, 1)
	if err := b.StartForwarder(ctx, func(ev realtime.Event) { got <- ev }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := b.Publish(ctx, realtime.Event{Type: realtime.EventLessonUnpublished, LessonID: "l2"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case ev := <-got:
		if ev.Type != realtime.EventLessonUnpublished || ev.LessonID != "l2" {
			t.Fatalf("event: %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
}
