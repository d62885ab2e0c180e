package parallel

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestFirstErrKeepsFirst(t *testing.T) {
	t.Parallel()
	var fe FirstErr
	first := errors.New("first error")
	second := errors.New("second error")

	fe.Set(first)
	if fe.Err() != first {
		t.Errorf("Err() = %v, want %v", fe.Err(), first)
	}

	fe.Set(second)
	if fe.Err() != first {
		t.Errorf("a later Set displaced the first error: got %v", fe.Err())
	}

	fe.Set(nil)
	if fe.Err() != first {
		t.Errorf("Set(nil) displaced the first error: got %v", fe.Err())
	}
}

func TestFirstErrZeroValue(t *testing.T) {
	t.Parallel()
	var fe FirstErr
	if fe.Err() != nil {
		t.Errorf("zero value reports %v, want nil", fe.Err())
	}
}

func TestFirstErrConcurrent(t *testing.T) {
	t.Parallel()
	var fe FirstErr
	var wg sync.WaitGroup

	// All goroutines race through one gate so the guard actually contends.
	gate := make(chan struct{})
	const goroutines = 100

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-gate
			fe.Set(fmt.Errorf("goroutine %d failed", i))
		}(i)
	}

	close(gate)
	wg.Wait()

	if fe.Err() == nil {
		t.Fatal("expected one recorded error, got nil")
	}
}
