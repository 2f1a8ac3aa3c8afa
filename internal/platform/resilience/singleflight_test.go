package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight[string]
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			got, err, _ := g.Do("teams:user-1", func() (string, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "ok", nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
			if got != "ok" {
				t.Errorf("unexpected value %q", got)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
}

func TestSingleFlight_KeyReleasedAfterCall(t *testing.T) {
	var g SingleFlight[int]
	calls := 0
	for i := 0; i < 3; i++ {
		_, _, shared := g.Do("limits", func() (int, error) {
			calls++
			return calls, nil
		})
		if shared {
			t.Fatalf("sequential call %d should not be shared", i)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 executions, got %d", calls)
	}
}
