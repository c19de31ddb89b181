package domain

import (
	"math"
	"testing"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
)

func TestCaloriesBurnedKnownValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		met     float64
		weight  float64
		minutes int
		want    int
	}{
		{name: "walking long", met: 4.0, weight: 70, minutes: 200, want: 980},
		{name: "default weight absent", met: 6.0, weight: 0, minutes: 30, want: 220},
		{name: "explicit default weight", met: 6.0, weight: 70, minutes: 30, want: 220},
		{name: "negative weight falls back", met: 6.0, weight: -5, minutes: 30, want: 220},
		{name: "nan weight falls back", met: 6.0, weight: math.NaN(), minutes: 30, want: 220},
		{name: "heavier runner", met: 9.8, weight: 82.5, minutes: 45, want: 637},
		{name: "one minute stretch", met: 2.3, weight: 55, minutes: 1, want: 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CaloriesBurned(tc.met, tc.weight, tc.minutes)
			if err != nil {
				t.Fatalf("calories burned: %v", err)
			}
			if got != tc.want {
				t.Fatalf("CaloriesBurned(%v, %v, %d) = %d, want %d", tc.met, tc.weight, tc.minutes, got, tc.want)
			}
		})
	}
}

func TestCaloriesBurnedIsPure(t *testing.T) {
	t.Parallel()

	first, err := CaloriesBurned(7.3, 64.2, 37)
	if err != nil {
		t.Fatalf("calories burned: %v", err)
	}
	for i := 0; i < 100; i++ {
		again, err := CaloriesBurned(7.3, 64.2, 37)
		if err != nil {
			t.Fatalf("calories burned: %v", err)
		}
		if again != first {
			t.Fatalf("run %d = %d, want %d", i, again, first)
		}
	}
}

func TestCaloriesBurnedRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		met     float64
		minutes int
		code    apperrors.Code
	}{
		{name: "zero met", met: 0, minutes: 10, code: apperrors.CodeCaloriesMETInvalid},
		{name: "negative met", met: -1, minutes: 10, code: apperrors.CodeCaloriesMETInvalid},
		{name: "nan met", met: math.NaN(), minutes: 10, code: apperrors.CodeCaloriesMETInvalid},
		{name: "zero minutes", met: 3, minutes: 0, code: apperrors.CodeLogDurationInvalid},
		{name: "negative minutes", met: 3, minutes: -30, code: apperrors.CodeLogDurationInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CaloriesBurned(tc.met, 70, tc.minutes)
			if apperrors.GetCode(err) != tc.code {
				t.Fatalf("error = %v, want code %s", err, tc.code)
			}
			if got != 0 {
				t.Fatalf("result = %d, want 0 on error", got)
			}
		})
	}
}
