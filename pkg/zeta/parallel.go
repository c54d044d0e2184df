package zeta

import (
	"runtime"
	"sync"
)

// DefaultChunkSize is the number of terms one remote request sums.
const DefaultChunkSize = 100_000

// MinChunkSize is the smallest chunk ParallelSum hands to a goroutine.
// Below it the goroutine handoff costs more than the terms.
const MinChunkSize = 256

// ParallelSum splits the direct sum into chunks of chunkSize terms and sums
// them on up to workers goroutines. A chunkSize of zero spreads each range
// evenly over the workers, in chunks of at least MinChunkSize terms; ranges
// that fit in one chunk are summed inline. A zero workers count uses
// GOMAXPROCS.
//
// Euler-Maclaurin needs about |t| terms, so the split only starts paying off
// once t is in the thousands.
func ParallelSum(workers, chunkSize int) SumFunc {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return func(s complex128, start, end int) (complex128, error) {
		size := chunkSize
		if size <= 0 {
			size = autoChunk(end-start, workers)
		}
		if end-start <= size {
			return directSum(s, start, end), nil
		}

		type chunk struct{ start, end int }
		chunks := make(chan chunk)
		results := make(chan complex128, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				var sum complex128
				for c := range chunks {
					sum += directSum(s, c.start, c.end)
				}
				results <- sum
			}()
		}
		for lo := start; lo < end; lo += size {
			chunks <- chunk{lo, min(lo+size, end)}
		}
		close(chunks)
		wg.Wait()
		close(results)

		var re, im neumaier
		for partial := range results {
			re.add(real(partial))
			im.add(imag(partial))
		}
		return complex(re.sum(), im.sum()), nil
	}
}

// autoChunk divides n terms evenly between workers.
func autoChunk(n, workers int) int {
	return max(MinChunkSize, (n+workers-1)/workers)
}
