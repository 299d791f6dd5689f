// SPDX-License-Identifier: Apache-2.0

package comparator

import "sync"

// RunBounded runs one task per entry in tasks with at most maxConcurrent
// running at once, and returns their results in the same order as tasks.
// maxConcurrent <= 0 means unbounded. This is the only place in the
// pipeline concurrency is allowed: dependency.Recurse uses it to process
// sibling dependency authentication repositories in parallel, while every
// other stage, target repository fetching included, stays serial.
func RunBounded[T any](tasks []func() T, maxConcurrent int) []T {
	results := make([]T, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	if maxConcurrent <= 0 || maxConcurrent > len(tasks) {
		maxConcurrent = len(tasks)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrent)

	for i, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, task func() T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = task()
		}(i, task)
	}

	wg.Wait()
	return results
}
