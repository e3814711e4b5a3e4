package listener

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestListenerInvokesHandlerPerInput(t *testing.T) {
	in := make(chan int, 4)
	var received atomic.Int64

	l := New(in, func(v int) error {
		received.Add(int64(v))
		return nil
	})
	l.Start(context.Background())
	defer l.Stop()

	in <- 1
	in <- 2
	in <- 3

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if received.Load() == 6 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("handler processed %d, want 6", received.Load())
}

func TestListenerStopCallsStopHandler(t *testing.T) {
	in := make(chan int)
	var stopped atomic.Bool

	l := New(in, func(int) error { return nil }, func() { stopped.Store(true) })
	l.Start(context.Background())
	l.Stop()

	if !stopped.Load() {
		t.Fatalf("stop handler was not invoked")
	}
}
