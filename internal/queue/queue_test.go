package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := New()
	for i := 0; i < 5; i++ {
		q.Put(i)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		item, ok := q.Get(ctx)
		require.True(t, ok)
		assert.Equal(t, i, item)
	}
}

func TestQueue_TryGetEmpty(t *testing.T) {
	q := New()
	_, ok := q.TryGet()
	assert.False(t, ok)
}

func TestQueue_GetBlocksUntilPut(t *testing.T) {
	q := New()
	result := make(chan any, 1)
	go func() {
		item, ok := q.Get(context.Background())
		if ok {
			result <- item
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Put("hello")

	select {
	case item := <-result:
		assert.Equal(t, "hello", item)
	case <-time.After(time.Second):
		t.Fatal("Get did not return after Put")
	}
}

func TestQueue_GetCancelledContext(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var ok bool
	go func() {
		_, ok = q.Get(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Get did not unblock on cancellation")
	}
}

func TestQueue_DrainAll(t *testing.T) {
	q := New()
	q.Put(1)
	q.Put(2)
	q.Put(3)

	drained := q.DrainAll()
	assert.Equal(t, []any{1, 2, 3}, drained)
	assert.Equal(t, 0, q.Len())

	_, ok := q.TryGet()
	assert.False(t, ok)
}

func TestQueue_TryPutAlwaysSucceeds(t *testing.T) {
	q := New()
	for i := 0; i < 1000; i++ {
		assert.True(t, q.TryPut(i))
	}
	assert.Equal(t, 1000, q.Len())
}
