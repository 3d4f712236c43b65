package dynamo

import (
	"runtime"
	"sync"
)

// Workers returns min(requested, GOMAXPROCS, n), never less than 1.
func Workers(requested, n int) int {
	w := requested
	if procs := runtime.GOMAXPROCS(0); w <= 0 || w > procs {
		w = procs
	}
	if n > 0 && w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// ChunkSize is the ceil-divided share of n items per worker.
func ChunkSize(n, workers int) int {
	if workers < 1 {
		workers = 1
	}
	return (n + workers - 1) / workers
}

// ParallelFor splits [0, n) into contiguous chunks, one per worker, and
// calls fn(worker, start, end) for each chunk concurrently. It returns after
// every call has completed. Worker indices are stable for a given (n,
// workers) pair so callers can keep per-worker state such as RNGs.
func ParallelFor(n, workers int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}
	if workers <= 1 || n == 1 {
		fn(0, 0, n)
		return
	}
	if workers > n {
		workers = n
	}

	chunk := ChunkSize(n, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			fn(w, s, e)
		}(w, start, end)
	}

	wg.Wait()
}
