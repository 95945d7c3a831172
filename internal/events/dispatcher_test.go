package events

import (
	"sync"
	"testing"
)

func TestDispatcher_RunsJobsInSubmissionOrder(t *testing.T) {
	d := NewDispatcher(0)
	var mu sync.Mutex
	var order []int

	for i := 0; i < 10; i++ {
		i := i
		d.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	d.Stop()

	if len(order) != 10 {
		t.Fatalf("got %d jobs run, want 10", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestDispatcher_SubmitAfterStopIsNoop(t *testing.T) {
	d := NewDispatcher(0)
	d.Stop()

	ran := false
	d.Submit(func() { ran = true })

	if ran {
		t.Error("job submitted after Stop ran; events must not fire after the dispatcher is stopped")
	}
}

func TestDispatcher_StopIsIdempotent(t *testing.T) {
	d := NewDispatcher(0)
	d.Stop()
	d.Stop() // must not panic or block
}

func TestDispatcher_ConcurrentSubmitDuringStopNeverPanics(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := NewDispatcher(1)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Submit(func() {})
		}()
		go func() {
			defer wg.Done()
			d.Stop()
		}()
		wg.Wait()
	}
}
