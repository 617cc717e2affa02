package bus

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func event(id string) model.PositionEvent {
	return model.PositionEvent{
		PositionID: id,
		Kind:       enum.EventTP1Hit,
		Price:      decimal.NewFromInt(100),
		Timestamp:  time.Now(),
	}
}

func TestQueueDeliversInOrder(t *testing.T) {
	q := NewQueue(8)
	require.NoError(t, q.TryPublish(event("a")))
	require.NoError(t, q.TryPublish(event("b")))
	q.Close()

	var got []string
	q.Run(context.Background(), func(e model.PositionEvent) {
		got = append(got, e.PositionID)
	})
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.TryPublish(event("a")))
	assert.ErrorIs(t, q.TryPublish(event("b")), ErrQueueFull)
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	assert.ErrorIs(t, q.TryPublish(event("a")), ErrQueueClosed)

	// double close is safe
	q.Close()
}

func TestQueueRunStopsOnContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(model.PositionEvent) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop on context cancel")
	}
}
