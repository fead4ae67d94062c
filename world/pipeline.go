package world

import "sync"

// task splits data in contiguous chunks, one goroutine per chunk.
// With a single worker the loop runs on the caller's goroutine.
func task[T any](workersCount int, data []T, fn func(data T)) {
	if workersCount <= 1 || len(data) <= 1 {
		for _, d := range data {
			fn(d)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (len(data) + workersCount - 1) / workersCount

	for start := 0; start < len(data); start += chunkSize {
		chunk := data[start:min(start+chunkSize, len(data))]

		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, d := range chunk {
				fn(d)
			}
		}()
	}
	wg.Wait()
}
