package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	redis "github.com/redis/go-redis/v9"

	"tourplan/internal/model"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so that a stream
// opened on one replica sees events of runs executing on another.
type RedisBroker struct {
	rdb    *redis.Client
	logger *log.Logger

	mu   sync.Mutex
	subs map[chan model.RunEvent]*redis.PubSub
}

func NewRedisBroker(rdb *redis.Client, logger *log.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, logger: logger, subs: map[chan model.RunEvent]*redis.PubSub{}}
}

func (b *RedisBroker) Subscribe(runID string) chan model.RunEvent {
	ch := make(chan model.RunEvent, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(runID))
	// wait for the confirmation so events published right after are seen
	if _, err := ps.Receive(ctx); err != nil {
		b.logger.Warn("redis subscribe", "run", runID, "err", err)
	}
	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt model.RunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue
			}
			deliver(ch, evt)
		}
	}()
	return ch
}

// Unsubscribe closes the Redis subscription; ch is closed once its reader
// goroutine drains.
func (b *RedisBroker) Unsubscribe(runID string, ch chan model.RunEvent) {
	b.mu.Lock()
	ps, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(runID string, evt model.RunEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := b.rdb.Publish(ctx, b.chanName(runID), data).Err(); err != nil {
		b.logger.Warn("redis publish", "run", runID, "type", evt.Type, "err", err)
	}
}

func (b *RedisBroker) chanName(runID string) string { return "run:" + runID }
