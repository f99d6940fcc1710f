package systems

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestNewJobSystemValidation(t *testing.T) {
	tests := []struct {
		name     string
		workers  int
		channel  int
		expected error
	}{
		{"no workers", 0, 1, ErrNoWorkers},
		{"negative channel", 2, -1, ErrNegativeChannelSize},
		{"ok", 2, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			js, err := NewJobSystem(tt.workers, tt.channel)
			if !errors.Is(err, tt.expected) {
				t.Fatalf("err = %v, want %v", err, tt.expected)
			}
			if js != nil {
				_ = js.Shutdown()
			}
		})
	}
}

func TestJobSystemRunsCallbacks(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var sum, failures, done int64
	for i := 0; i < 10; i++ {
		wg.Add(1)
		js.Submit(JobTask{
			Name:        "square",
			InputParams: i,
			OnStart: func(p interface{}) (interface{}, error) {
				n := p.(int)
				if n == 3 {
					return nil, errors.New("three is not welcome")
				}
				return n * n, nil
			},
			OnComplete: func(r interface{}) {
				atomic.AddInt64(&sum, int64(r.(int)))
			},
			OnFailure: func(error) {
				atomic.AddInt64(&failures, 1)
			},
			OnCompletionCallback: func() {
				atomic.AddInt64(&done, 1)
				wg.Done()
			},
		})
	}
	wg.Wait()
	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}

	// 0..9 squared is 285, minus the rejected 9
	if sum != 276 || failures != 1 || done != 10 {
		t.Fatalf("sum=%d failures=%d done=%d", sum, failures, done)
	}
}
