package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navlens/internal/pkg/async"
)

func TestExecuteCollectsAllResults(t *testing.T) {
	tasks := []async.Task{
		{Name: "a", Execute: func() (interface{}, error) { return 1, nil }},
		{Name: "b", Execute: func() (interface{}, error) { return nil, errors.New("boom") }},
		{Name: "c", Execute: func() (interface{}, error) { return "ok", nil }},
	}

	results := async.NewPool(2).Execute(context.Background(), tasks)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results["a"].Data)
	assert.NoError(t, results["a"].Err)
	assert.EqualError(t, results["b"].Err, "boom")
	assert.Equal(t, "ok", results["c"].Data)
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	var running, peak int32

	task := func() (interface{}, error) {
		current := atomic.AddInt32(&running, 1)
		for {
			observed := atomic.LoadInt32(&peak)
			if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil, nil
	}

	tasks := make([]async.Task, 6)
	for i := range tasks {
		tasks[i] = async.Task{Name: string(rune('a' + i)), Execute: task}
	}

	results := async.NewPool(2).Execute(context.Background(), tasks)
	assert.Len(t, results, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestExecuteReturnsPartialOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	blocked := make(chan struct{})
	tasks := []async.Task{
		{Name: "fast", Execute: func() (interface{}, error) { return nil, nil }},
		{Name: "slow", Execute: func() (interface{}, error) {
			<-blocked
			return nil, nil
		}},
	}

	t.Cleanup(func() { close(blocked) })
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	results := async.NewPool(2).Execute(ctx, tasks)
	_, hasSlow := results["slow"]
	assert.False(t, hasSlow, "cancelled task must be absent so callers can detect it")
}
