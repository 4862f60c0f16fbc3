// internal/pkg/async/pool.go
package async

import (
	"context"
	"sync"
)

// Task is a named unit of work run by the pool.
type Task struct {
	Name    string
	Execute func() (any, error)
}

// Result pairs a task name with what its Execute returned.
type Result struct {
	Name string
	Data any
	Err  error
}

// Pool fans a fixed batch of tasks out over a bounded set of workers.
// A fresh Pool is cheap; callers create one per batch.
type Pool struct {
	workerCount int
}

// NewPool returns a pool running at most workerCount tasks concurrently.
func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs all tasks and returns their results keyed by task name.
// When ctx is cancelled, tasks that have not finished are absent from the
// returned map; the caller decides whether that is fatal.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	taskCh := make(chan Task, len(tasks))
	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	resultCh := make(chan Result, len(tasks))
	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				if ctx.Err() != nil {
					return
				}
				data, err := task.Execute()
				resultCh <- Result{Name: task.Name, Data: data, Err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[string]Result, len(tasks))
	for {
		select {
		case result, ok := <-resultCh:
			if !ok {
				return results
			}
			results[result.Name] = result
		case <-ctx.Done():
			return results
		}
	}
}
