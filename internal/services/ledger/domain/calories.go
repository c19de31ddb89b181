package domain

import (
	"math"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
)

// DefaultWeightKg is used when a profile has no usable weight.
const DefaultWeightKg = 70.0

// CaloriesBurned estimates kcal for an activity with the MET formula
// round(met * 3.5 * weight * minutes / 200).
//
// A missing, zero, negative or non-finite weight falls back to
// DefaultWeightKg. Halves round to even so that MET 6.0 for 30 minutes at
// 70 kg (220.5 kcal) reports the published value of 220.
func CaloriesBurned(metValue float64, weightKg float64, durationMinutes int) (int, error) {
	if math.IsNaN(metValue) || math.IsInf(metValue, 0) || metValue <= 0 {
		return 0, apperrors.New(apperrors.CodeCaloriesMETInvalid, "met value must be positive")
	}
	if durationMinutes <= 0 {
		return 0, apperrors.New(apperrors.CodeLogDurationInvalid, "duration must be positive")
	}
	weightKg = EffectiveWeight(weightKg)

	kcal := math.RoundToEven(metValue * 3.5 * weightKg * float64(durationMinutes) / 200)
	if kcal > math.MaxInt32 {
		kcal = math.MaxInt32
	}
	return int(kcal), nil
}

// EffectiveWeight returns weightKg, or DefaultWeightKg when it is unusable.
func EffectiveWeight(weightKg float64) float64 {
	if math.IsNaN(weightKg) || math.IsInf(weightKg, 0) || weightKg <= 0 {
		return DefaultWeightKg
	}
	return weightKg
}
