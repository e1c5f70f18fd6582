package utils

import (
	"context"
	"sync"
)

type CompletedTask[In any, Out any] struct {
	Input  In
	Result Out
	Error  error
}

// RunInPool runs worker over inputs with at most maxWorkers goroutines and
// returns one CompletedTask per input, in input order. Inputs not yet started
// when ctx is cancelled complete with ctx.Err().
func RunInPool[In any, Out any](ctx context.Context, worker func(context.Context, In) (Out, error), inputs []In, maxWorkers int) []CompletedTask[In, Out] {
	completed := make([]CompletedTask[In, Out], len(inputs))
	if len(inputs) == 0 {
		return completed
	}

	queue := make(chan int, len(inputs))
	for i := range inputs {
		queue <- i
	}
	close(queue)

	workers := max(min(len(inputs), maxWorkers), 1)

	wg := sync.WaitGroup{}
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			for idx := range queue {
				task := CompletedTask[In, Out]{Input: inputs[idx]}
				if err := ctx.Err(); err != nil {
					task.Error = err
				} else {
					task.Result, task.Error = worker(ctx, inputs[idx])
				}
				completed[idx] = task
			}
		}()
	}

	wg.Wait()

	return completed
}
