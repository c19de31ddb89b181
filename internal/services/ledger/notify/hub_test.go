package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/kalori/internal/services/ledger/domain"
)

func update(userID string, coins int) domain.RewardUpdate {
	return domain.RewardUpdate{State: domain.RewardState{UserID: userID, TotalCoins: coins}}
}

func receive(t *testing.T, sub *Subscription) domain.RewardUpdate {
	t.Helper()
	select {
	case got, ok := <-sub.Updates():
		if !ok {
			t.Fatal("subscription closed")
		}
		return got
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}
	return domain.RewardUpdate{}
}

func TestHubDeliversToEverySubscriberOfUser(t *testing.T) {
	t.Parallel()

	hub := NewHub(4)
	first, err := hub.Subscribe("user-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	second, err := hub.Subscribe("user-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	hub.Publish(context.Background(), update("user-1", 120))

	for _, sub := range []*Subscription{first, second} {
		if got := receive(t, sub); got.State.TotalCoins != 120 {
			t.Fatalf("coins = %d, want 120", got.State.TotalCoins)
		}
	}
}

func TestHubIsolatesUsers(t *testing.T) {
	t.Parallel()

	hub := NewHub(4)
	alice, err := hub.Subscribe("alice")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	bob, err := hub.Subscribe("bob")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	hub.Publish(context.Background(), update("alice", 10))
	hub.Publish(context.Background(), update("bob", 20))

	if got := receive(t, alice); got.State.UserID != "alice" {
		t.Fatalf("alice received %q", got.State.UserID)
	}
	if got := receive(t, bob); got.State.UserID != "bob" {
		t.Fatalf("bob received %q", got.State.UserID)
	}
	select {
	case got := <-alice.Updates():
		t.Fatalf("alice received extra update %+v", got)
	default:
	}
}

func TestHubPublishNeverBlocksAndKeepsNewest(t *testing.T) {
	t.Parallel()

	hub := NewHub(2)
	sub, err := hub.Subscribe("user-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for coins := 1; coins <= 10; coins++ {
			hub.Publish(context.Background(), update("user-1", coins))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}

	if got := receive(t, sub); got.State.TotalCoins != 9 {
		t.Fatalf("first pending = %d, want 9", got.State.TotalCoins)
	}
	if got := receive(t, sub); got.State.TotalCoins != 10 {
		t.Fatalf("second pending = %d, want 10", got.State.TotalCoins)
	}
	if sub.Dropped() != 8 {
		t.Fatalf("dropped = %d, want 8", sub.Dropped())
	}
}

func TestSubscriptionCloseUnsubscribes(t *testing.T) {
	t.Parallel()

	hub := NewHub(1)
	sub, err := hub.Subscribe("user-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	sub.Close()
	sub.Close()

	if hub.SubscriberCount("user-1") != 0 {
		t.Fatalf("subscriber count = %d, want 0", hub.SubscriberCount("user-1"))
	}
	hub.Publish(context.Background(), update("user-1", 5))
	if _, ok := <-sub.Updates(); ok {
		t.Fatal("expected closed channel")
	}
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	t.Parallel()

	hub := NewHub(1)
	sub, err := hub.Subscribe("user-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	hub.Close()
	if _, ok := <-sub.Updates(); ok {
		t.Fatal("expected closed channel")
	}
	if _, err := hub.Subscribe("user-1"); err != ErrHubClosed {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}
	sub.Close()
}

func TestHubConcurrentPublishAndClose(t *testing.T) {
	t.Parallel()

	hub := NewHub(4)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := hub.Subscribe("user-1")
			if err != nil {
				t.Errorf("subscribe: %v", err)
				return
			}
			for coins := range 20 {
				hub.Publish(context.Background(), update("user-1", i*100+coins))
			}
			sub.Close()
		}()
	}
	wg.Wait()
	if hub.SubscriberCount("user-1") != 0 {
		t.Fatalf("subscriber count = %d, want 0", hub.SubscriberCount("user-1"))
	}
}

func TestSubscribeRequiresUser(t *testing.T) {
	t.Parallel()

	if _, err := NewHub(1).Subscribe("  "); err == nil {
		t.Fatal("expected user id error")
	}
}
