package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeqClock_ZeroValueStartsAtOne(t *testing.T) {
	var clock SeqClock
	assert.Equal(t, int64(0), clock.Last())
	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Last())
}

func TestSeqClock_ResumesAfterStoredSeq(t *testing.T) {
	clock := NewSeqClock(41)
	assert.Equal(t, int64(41), clock.Last())
	assert.Equal(t, int64(42), clock.Next())
}

func TestSeqClock_ConcurrentNextIsGapFree(t *testing.T) {
	const workers, perWorker = 50, 200

	clock := NewSeqClock(0)
	seen := make(chan int64, workers*perWorker)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				seen <- clock.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	got := make(map[int64]bool, workers*perWorker)
	for seq := range seen {
		assert.False(t, got[seq], "seq %d issued twice", seq)
		got[seq] = true
	}
	for seq := int64(1); seq <= workers*perWorker; seq++ {
		assert.True(t, got[seq], "seq %d never issued", seq)
	}
	assert.Equal(t, int64(workers*perWorker), clock.Last())
}
