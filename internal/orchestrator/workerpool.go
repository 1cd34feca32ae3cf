package orchestrator

import "sync"

// runPool runs fn(item) for every item in items across a bounded worker
// pool, the same buffered-channel-semaphore plus sync.WaitGroup shape the
// teacher uses for its concurrent embedding pass. results[i] holds fn's
// return for items[i]; order is preserved even though execution isn't.
func runPool[T any, R any](items []T, concurrency int, fn func(T) R) []R {
	n := len(items)
	results := make([]R, n)
	if n == 0 {
		return results
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > n {
		concurrency = n
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fn(item)
		}(i, item)
	}
	wg.Wait()
	return results
}

// poolSize is max(1, min(configured, pending)), the run's worker-count rule.
func poolSize(configured, pending int) int {
	if pending < 1 {
		return 1
	}
	size := configured
	if size > pending {
		size = pending
	}
	if size < 1 {
		size = 1
	}
	return size
}
