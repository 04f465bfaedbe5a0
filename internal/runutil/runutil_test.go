package runutil

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveThreads(t *testing.T) {
	assert.Equal(t, 3, EffectiveThreads(3))
	assert.Equal(t, runtime.NumCPU(), EffectiveThreads(0))
	assert.Equal(t, runtime.NumCPU(), EffectiveThreads(-2))
}

func TestChunkSize(t *testing.T) {
	assert.Equal(t, 64, ChunkSize(100, 4, 64))
	assert.Equal(t, 625, ChunkSize(10000, 4, 64))
	assert.Equal(t, 1, ChunkSize(0, 0, 0))
}

func TestLRUSetEvictsOldest(t *testing.T) {
	s := NewLRUSet[string](2)
	assert.False(t, s.Add("a"))
	assert.False(t, s.Add("b"))
	assert.True(t, s.Add("a")) // touch a; b is now oldest
	assert.False(t, s.Add("c"))
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("b"))
}

func TestLRUSetConcurrentFirstAddOnce(t *testing.T) {
	s := NewLRUSet[string](0)
	var fresh atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				if !s.Add(fmt.Sprint("tax", k)) {
					fresh.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), fresh.Load())
	assert.Equal(t, 100, s.Len())
}
