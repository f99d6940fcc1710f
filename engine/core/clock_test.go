package core

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	if c.Elapsed() != 0 {
		t.Fatalf("unstarted clock elapsed = %v, want 0", c.Elapsed())
	}

	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Update()
	if c.Elapsed() <= 0 {
		t.Fatal("started clock should have elapsed time")
	}

	c.Stop()
	stopped := c.Elapsed()
	c.Update()
	if c.Elapsed() != stopped {
		t.Fatal("stopped clock should not advance")
	}
}
