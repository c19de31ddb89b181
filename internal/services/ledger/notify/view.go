package notify

import (
	"sync"

	"github.com/louisbranch/kalori/internal/services/ledger/domain"
)

// View holds the newest reward state an observer has seen. Coins never move
// backwards, so a delayed smaller snapshot is ignored.
type View struct {
	mu    sync.Mutex
	state domain.RewardState
	seen  bool
}

// Apply folds state into the view and reports whether it changed.
func (v *View) Apply(state domain.RewardState) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen {
		if state.UserID != v.state.UserID {
			return false
		}
		if state.TotalCoins < v.state.TotalCoins {
			return false
		}
		if state.TotalCoins == v.state.TotalCoins && !state.UpdatedAt.After(v.state.UpdatedAt) {
			return false
		}
	}
	state.UnlockedAchievementCount = domain.UnlockedCount(state.TotalCoins)
	v.state = state
	v.seen = true
	return true
}

// Current returns the newest state and whether any was applied.
func (v *View) Current() (domain.RewardState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state, v.seen
}
