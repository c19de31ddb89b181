package domain

import (
	"slices"
	"testing"
)

func TestUnlockedCount(t *testing.T) {
	t.Parallel()

	cases := map[int]int{
		0:     0,
		99:    0,
		100:   1,
		499:   1,
		500:   2,
		1499:  3,
		2500:  5,
		9999:  5,
		10000: 6,
		50000: 6,
	}
	for coins, want := range cases {
		if got := UnlockedCount(coins); got != want {
			t.Fatalf("UnlockedCount(%d) = %d, want %d", coins, got, want)
		}
	}
}

func TestCrossedThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		previous int
		current  int
		want     []int
	}{
		{name: "crosses one", previous: 90, current: 150, want: []int{100}},
		{name: "already past", previous: 150, current: 210, want: nil},
		{name: "lands exactly", previous: 499, current: 500, want: []int{500}},
		{name: "starts exactly", previous: 500, current: 600, want: nil},
		{name: "crosses many", previous: 0, current: 2600, want: []int{100, 500, 1000, 1500, 2500}},
		{name: "no movement", previous: 100, current: 100, want: nil},
		{name: "backwards", previous: 1000, current: 10, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CrossedThresholds(tc.previous, tc.current)
			if !slices.Equal(got, tc.want) {
				t.Fatalf("CrossedThresholds(%d, %d) = %v, want %v", tc.previous, tc.current, got, tc.want)
			}
		})
	}
}

func TestUnlockedCountMatchesReachedThresholds(t *testing.T) {
	t.Parallel()

	for coins := 0; coins <= 11000; coins += 37 {
		if got, want := len(ReachedThresholds(coins)), UnlockedCount(coins); got != want {
			t.Fatalf("coins %d: reached %d, unlocked %d", coins, got, want)
		}
	}
}
