package vulkan

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestLockPoolSerializesQueueCalls(t *testing.T) {
	lp := NewLockPool()
	var (
		wg      sync.WaitGroup
		active  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = lp.SafeQueueCall(0, func() error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("%d calls ran concurrently on one queue family", maxSeen)
	}
}

func TestLockPoolReturnsCallError(t *testing.T) {
	lp := NewLockPool()
	want := errors.New("boom")
	if err := lp.SafeCall(PoolManagement, func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("SafeCall = %v, want %v", err, want)
	}
	// the mutex must be released after an error
	if err := lp.SafeCall(PoolManagement, func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if lp.queueLock(1) != lp.queueLock(1) || lp.queueLock(1) == lp.queueLock(2) {
		t.Fatal("queue locks are not per family")
	}
}
