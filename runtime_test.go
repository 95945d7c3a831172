package taps

import (
	"sync"
	"testing"
	"time"
)

func TestGoRuntime_GoRunsOnItsOwnGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	callerGoroutine := make(chan bool, 1)
	var rt GoRuntime
	rt.Go(func() {
		defer wg.Done()
		callerGoroutine <- true
	})

	select {
	case <-callerGoroutine:
	case <-time.After(time.Second):
		t.Fatal("GoRuntime.Go never ran the function")
	}
	wg.Wait()
}
