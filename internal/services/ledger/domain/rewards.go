package domain

import (
	"slices"
	"time"
)

// AchievementThresholds are the coin totals that unlock an achievement, in
// ascending order.
var AchievementThresholds = []int{100, 500, 1000, 1500, 2500, 10000}

// RewardState is one user's coin balance and unlock count.
type RewardState struct {
	UserID                   string
	TotalCoins               int
	UnlockedAchievementCount int
	UpdatedAt                time.Time
}

// Achievement is one threshold with its unlock state for a user.
type Achievement struct {
	Threshold  int
	Unlocked   bool
	UnlockedAt time.Time
}

// AchievementUnlock records when a user first reached a threshold.
type AchievementUnlock struct {
	Threshold  int
	UnlockedAt time.Time
}

// UnlockedCount returns how many thresholds are at or below totalCoins.
func UnlockedCount(totalCoins int) int {
	count := 0
	for _, threshold := range AchievementThresholds {
		if threshold <= totalCoins {
			count++
		}
	}
	return count
}

// CrossedThresholds returns the thresholds t with previous < t <= current,
// ascending. It is empty when current <= previous.
func CrossedThresholds(previous int, current int) []int {
	var crossed []int
	for _, threshold := range AchievementThresholds {
		if previous < threshold && threshold <= current {
			crossed = append(crossed, threshold)
		}
	}
	return crossed
}

// ReachedThresholds returns every threshold at or below totalCoins.
func ReachedThresholds(totalCoins int) []int {
	return CrossedThresholds(-1, totalCoins)
}

func sameThresholds(a []int, b []int) bool {
	return slices.Equal(a, b)
}
