package notify

import (
	"testing"
	"time"

	"github.com/louisbranch/kalori/internal/services/ledger/domain"
)

func TestViewKeepsMaximum(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	var view View
	if _, ok := view.Current(); ok {
		t.Fatal("expected empty view")
	}
	if !view.Apply(domain.RewardState{UserID: "u", TotalCoins: 150, UpdatedAt: base}) {
		t.Fatal("expected first state to apply")
	}
	if view.Apply(domain.RewardState{UserID: "u", TotalCoins: 90, UpdatedAt: base.Add(time.Minute)}) {
		t.Fatal("smaller balance must not replace a larger one")
	}
	if view.Apply(domain.RewardState{UserID: "u", TotalCoins: 150, UpdatedAt: base}) {
		t.Fatal("duplicate state must not count as a change")
	}
	if view.Apply(domain.RewardState{UserID: "other", TotalCoins: 999, UpdatedAt: base}) {
		t.Fatal("another user's state must be ignored")
	}
	if !view.Apply(domain.RewardState{UserID: "u", TotalCoins: 510, UpdatedAt: base.Add(2 * time.Minute)}) {
		t.Fatal("expected larger balance to apply")
	}

	current, ok := view.Current()
	if !ok || current.TotalCoins != 510 || current.UnlockedAchievementCount != 2 {
		t.Fatalf("current = %+v", current)
	}
}
