package eventloop

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostPreservesOrder(t *testing.T) {
	l := New(8)
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	for i := 0; i < 5; i++ {
		(<-l.Tasks())()
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestPostAfterClose(t *testing.T) {
	l := New(1)
	l.Close()
	l.Close()
	assert.False(t, l.Post(func() {}))
}

func TestCloseUnblocksFullQueue(t *testing.T) {
	l := New(1)
	require.True(t, l.Post(func() {}))

	var wg sync.WaitGroup
	wg.Add(1)
	var ok bool
	go func() {
		defer wg.Done()
		ok = l.Post(func() {})
	}()
	l.Close()
	wg.Wait()
	assert.False(t, ok)
}

func TestTryPostDoesNotBlock(t *testing.T) {
	l := New(1)
	require.True(t, l.TryPost(func() {}))
	assert.False(t, l.TryPost(func() {}), "queue full")

	(<-l.Tasks())()
	assert.True(t, l.TryPost(func() {}))

	l.Close()
	assert.False(t, l.TryPost(func() {}))
}
