package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourplan/internal/model"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	other := b.Subscribe("r2")

	evt := model.RunEvent{Type: model.EventRunPass, RunID: "r1", Data: map[string]any{"pass": 1}}
	b.Publish("r1", evt)

	select {
	case got := <-ch:
		assert.Equal(t, evt, got)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case got := <-other:
		t.Fatalf("r2 subscriber got %+v", got)
	default:
	}

	b.Unsubscribe("r1", ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	assert.NotPanics(t, func() { b.Unsubscribe("r1", ch) })
	assert.NotPanics(t, func() { b.Publish("r1", evt) })
	b.Unsubscribe("r2", other)
	assert.Empty(t, b.subs)
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	defer b.Unsubscribe("r1", ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish("r1", model.RunEvent{Type: model.EventRunPass})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	require.Len(t, ch, cap(ch))
}

func TestBrokerKeepsTerminalEventForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	defer b.Unsubscribe("r1", ch)

	for i := 0; i < cap(ch)+5; i++ {
		b.Publish("r1", model.RunEvent{Type: model.EventRunPass, RunID: "r1"})
	}
	b.Publish("r1", model.RunEvent{Type: model.EventRunCompleted, RunID: "r1"})
	require.Len(t, ch, cap(ch))

	var last model.RunEvent
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, model.EventRunCompleted, last.Type)
}
