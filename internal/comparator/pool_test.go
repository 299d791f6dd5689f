// SPDX-License-Identifier: Apache-2.0

package comparator

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunBoundedPreservesOrder(t *testing.T) {
	tasks := make([]func() int, 10)
	for i := range tasks {
		i := i
		tasks[i] = func() int { return i * i }
	}

	results := RunBounded(tasks, 3)

	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}

func TestRunBoundedRespectsConcurrencyLimit(t *testing.T) {
	var current, max int64
	tasks := make([]func() int, 20)
	for i := range tasks {
		tasks[i] = func() int {
			n := atomic.AddInt64(&current, 1)
			for {
				m := atomic.LoadInt64(&max)
				if n <= m || atomic.CompareAndSwapInt64(&max, m, n) {
					break
				}
			}
			atomic.AddInt64(&current, -1)
			return 0
		}
	}

	RunBounded(tasks, 4)

	assert.LessOrEqual(t, atomic.LoadInt64(&max), int64(4))
}

func TestRunBoundedEmpty(t *testing.T) {
	results := RunBounded[int](nil, 4)
	assert.Empty(t, results)
}
