// internal/runutil/runutil.go
package runutil

import "runtime"

// EffectiveThreads maps a requested worker count to a usable one:
// n <= 0 means one worker per CPU.
func EffectiveThreads(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// ChunkSize splits total items so each of workers gets about four chunks,
// never smaller than floor.
func ChunkSize(total, workers, floor int) int {
	if workers < 1 {
		workers = 1
	}
	c := (total + workers*4 - 1) / (workers * 4)
	if c < floor {
		c = floor
	}
	if c < 1 {
		c = 1
	}
	return c
}
