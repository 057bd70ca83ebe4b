package events

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeed(t *testing.T) {
	feed := NewFeed[string](false)
	require.NotNil(t, feed)
	assert.Equal(t, 0, feed.ListenerCount())
	assert.False(t, feed.replayLatest)

	feed2 := NewFeed[int](true)
	require.NotNil(t, feed2)
	assert.True(t, feed2.replayLatest)
}

func TestFeed_Listen_Notify_Basic(t *testing.T) {
	feed := NewFeed[string](false)

	ch := make(chan string, 10)
	unregister := feed.Listen(ch)
	assert.Equal(t, 1, feed.ListenerCount())

	feed.Notify("test1")
	feed.Notify("test2")

	// Channel sends happen inside Notify
	require.Len(t, ch, 2)
	assert.Equal(t, "test1", <-ch)
	assert.Equal(t, "test2", <-ch)

	unregister()
	assert.Equal(t, 0, feed.ListenerCount())

	feed.Notify("test3")
	select {
	case val := <-ch:
		t.Errorf("Unexpected value received after unregister: %s", val)
	default:
	}
}

func TestFeed_FullChannelIsSkipped(t *testing.T) {
	feed := NewFeed[int](false)

	full := make(chan int, 1)
	roomy := make(chan int, 10)
	feed.Listen(full)
	feed.Listen(roomy)

	feed.Notify(1)
	feed.Notify(2)
	feed.Notify(3)

	assert.Len(t, full, 1)
	assert.Equal(t, 1, <-full)
	assert.Len(t, roomy, 3)
}

func TestFeed_ListenFunc(t *testing.T) {
	feed := NewFeed[int](false)

	var got []int
	unregister := feed.ListenFunc(func(v int) { got = append(got, v) })

	feed.Notify(42)
	feed.Notify(100)
	assert.Equal(t, []int{42, 100}, got)

	unregister()
	feed.Notify(7)
	assert.Equal(t, []int{42, 100}, got)
}

func TestFeed_ReplayLatest_NoNotifyYet(t *testing.T) {
	feed := NewFeed[string](true)

	ch := make(chan string, 10)
	feed.Listen(ch)
	assert.Len(t, ch, 0)

	_, ok := feed.Latest()
	assert.False(t, ok)
}

func TestFeed_ReplayLatest_AfterNotify(t *testing.T) {
	feed := NewFeed[string](true)
	feed.Notify("first")
	feed.Notify("second")

	ch := make(chan string, 10)
	feed.Listen(ch)
	require.Len(t, ch, 1)
	assert.Equal(t, "second", <-ch)

	var replayed string
	feed.ListenFunc(func(v string) { replayed = v })
	assert.Equal(t, "second", replayed)

	latest, ok := feed.Latest()
	assert.True(t, ok)
	assert.Equal(t, "second", latest)
}

func TestFeed_NoReplayWhenDisabled(t *testing.T) {
	feed := NewFeed[string](false)
	feed.Notify("ignored")

	ch := make(chan string, 10)
	feed.Listen(ch)
	assert.Len(t, ch, 0)

	_, ok := feed.Latest()
	assert.False(t, ok)
}

func TestFeed_CallbackMayUnregisterItself(t *testing.T) {
	feed := NewFeed[int](false)

	var calls int
	var unregister func()
	unregister = feed.ListenFunc(func(int) {
		calls++
		unregister()
	})

	feed.Notify(1)
	feed.Notify(2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, feed.ListenerCount())
}

func TestFeed_NilListenerPanics(t *testing.T) {
	feed := NewFeed[int](false)
	assert.Panics(t, func() { feed.Listen(nil) })
	assert.Panics(t, func() { feed.ListenFunc(nil) })
}

func TestFeed_ConcurrentAccess(t *testing.T) {
	feed := NewFeed[int](true)

	var received atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unregister := feed.ListenFunc(func(int) { received.Add(1) })
			for j := 0; j < 100; j++ {
				feed.Notify(j)
			}
			unregister()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, feed.ListenerCount())
	assert.Greater(t, received.Load(), int64(0))
}
