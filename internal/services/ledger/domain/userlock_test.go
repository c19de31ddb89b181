package domain

import (
	"sync"
	"testing"
	"time"
)

func TestUserLocksSerializeSameUser(t *testing.T) {
	t.Parallel()

	locks := newUserLocks()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.lock("user-1")
			value := counter
			time.Sleep(time.Microsecond)
			counter = value + 1
			release()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if locks.size() != 0 {
		t.Fatalf("expected idle lock table, got %d entries", locks.size())
	}
}

func TestUserLocksIndependentUsers(t *testing.T) {
	t.Parallel()

	locks := newUserLocks()
	releaseA := locks.lock("user-a")
	defer releaseA()

	acquired := make(chan struct{})
	go func() {
		release := locks.lock("user-b")
		release()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("user-b blocked behind user-a")
	}
}
