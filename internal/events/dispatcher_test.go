package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncDispatcher_DeliversToSubscribers(t *testing.T) {
	d := NewAsyncDispatcher(8, nil)

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{}, 2)
	record := func(_ context.Context, e Event) error {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}
	d.Subscribe(EventRequestCreated, record)
	d.Subscribe(EventRequestCreated, func(context.Context, Event) error {
		done <- struct{}{}
		return errors.New("listener failure is only logged")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.Publish(ctx, Event{Type: EventRequestCreated, ActorID: "u1"}))
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler not invoked")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, "u1", got[0].ActorID)
}

func TestAsyncDispatcher_PublishNeverBlocks(t *testing.T) {
	d := NewAsyncDispatcher(1, nil)

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventPreferencePosted}))
	err := d.Publish(context.Background(), Event{Type: EventPreferencePosted})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestAsyncDispatcher_RecoversFromPanickingHandler(t *testing.T) {
	d := NewAsyncDispatcher(4, nil)
	delivered := make(chan struct{}, 1)
	d.Subscribe(EventRequestCommitted, func(context.Context, Event) error { panic("bad listener") })
	d.Subscribe(EventRequestCommitted, func(context.Context, Event) error {
		delivered <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.Publish(ctx, Event{Type: EventRequestCommitted}))
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("second handler not reached after panic")
	}
}
