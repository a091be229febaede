// Package async runs small batches of named tasks concurrently and
// collects their results by name.
package async

import (
	"context"
	"sync"
)

// Task is one named unit of work.
type Task struct {
	Name    string
	Execute func() (interface{}, error)
}

// Result is a finished task's outcome.
type Result struct {
	Name string
	Data interface{}
	Err  error
}

// Pool bounds how many tasks run at once.
type Pool struct {
	limit int
}

func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{limit: limit}
}

// Execute runs every task, at most limit at a time, and blocks until all
// of them finish or ctx is cancelled. Results are keyed by task name; on
// cancellation the map holds only the tasks that completed in time, so
// callers must check for missing entries.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	sem := make(chan struct{}, p.limit)
	done := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			data, err := task.Execute()
			done <- Result{Name: task.Name, Data: data, Err: err}
		}(task)
	}

	results := make(map[string]Result, len(tasks))
	for range tasks {
		select {
		case result := <-done:
			results[result.Name] = result
		case <-ctx.Done():
			return results
		}
	}
	wg.Wait()
	return results
}
