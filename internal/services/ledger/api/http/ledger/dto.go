package ledger

import (
	"time"

	"github.com/louisbranch/kalori/internal/services/ledger/domain"
	"github.com/louisbranch/kalori/internal/services/ledger/nutrition"
	"github.com/louisbranch/kalori/internal/services/ledger/render"
)

// Entry kinds in the daily log listing.
const (
	entryKindFood     = "food"
	entryKindActivity = "activity"
)

type foodLogRequest struct {
	FoodName     string  `json:"food_name"`
	CaloriesKcal int     `json:"calories_kcal"`
	ServingQty   float64 `json:"serving_qty"`
	ServingUnit  string  `json:"serving_unit"`
	Date         string  `json:"date,omitempty"`
}

type activityLogRequest struct {
	ActivityID      string `json:"activity_id"`
	DurationMinutes int    `json:"duration_minutes"`
	Date            string `json:"date,omitempty"`
}

type weightRequest struct {
	WeightKg float64 `json:"weight_kg"`
}

type activityResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	METValue float64 `json:"met_value"`
}

type activitiesResponse struct {
	Activities []activityResponse `json:"activities"`
}

type foodResponse struct {
	FDCID        int64  `json:"fdc_id,omitempty"`
	Name         string `json:"name"`
	CaloriesKcal int    `json:"calories_kcal"`
	Unit         string `json:"unit"`
}

type foodSearchResponse struct {
	Foods []foodResponse `json:"foods"`
}

type rewardStateResponse struct {
	UserID                   string `json:"user_id"`
	TotalCoins               int    `json:"total_coins"`
	UnlockedAchievementCount int    `json:"unlocked_achievement_count"`
	UpdatedAt                string `json:"updated_at,omitempty"`
}

type unlockResponse struct {
	Threshold int    `json:"threshold"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}

type rewardResponse struct {
	State         rewardStateResponse `json:"state"`
	NewlyUnlocked []unlockResponse    `json:"newly_unlocked"`
	Replayed      bool                `json:"replayed,omitempty"`
}

type logEntryResponse struct {
	ID              string  `json:"id"`
	Kind            string  `json:"kind"`
	Name            string  `json:"name"`
	CaloriesKcal    int     `json:"calories_kcal"`
	ServingQty      float64 `json:"serving_qty,omitempty"`
	ServingUnit     string  `json:"serving_unit,omitempty"`
	ActivityID      string  `json:"activity_id,omitempty"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
	Date            string  `json:"date"`
	CreatedAt       string  `json:"created_at"`
}

type foodLogResponse struct {
	Entry  logEntryResponse `json:"entry"`
	Reward rewardResponse   `json:"reward"`
}

type activityLogResponse struct {
	Entry    logEntryResponse `json:"entry"`
	METValue float64          `json:"met_value"`
	WeightKg float64          `json:"weight_kg"`
	Reward   rewardResponse   `json:"reward"`
}

type dailyLogResponse struct {
	Date    string             `json:"date"`
	Entries []logEntryResponse `json:"entries"`
}

type dailySummaryResponse struct {
	Date        string `json:"date"`
	CaloriesIn  int    `json:"calories_in"`
	CaloriesOut int    `json:"calories_out"`
	NetCalories int    `json:"net_calories"`
	NetLabel    string `json:"net_label,omitempty"`
	Tier        string `json:"motivation_tier,omitempty"`
	Motivation  string `json:"motivation,omitempty"`
	// MotivationSource is "rules" or "coach".
	MotivationSource string `json:"motivation_source,omitempty"`
}

const (
	motivationSourceRules = "rules"
	motivationSourceCoach = "coach"
)

type weeklySummaryResponse struct {
	Anchor string                 `json:"anchor"`
	Days   []dailySummaryResponse `json:"days"`
}

type achievementResponse struct {
	Threshold  int    `json:"threshold"`
	Title      string `json:"title"`
	Unlocked   bool   `json:"unlocked"`
	UnlockedAt string `json:"unlocked_at,omitempty"`
}

type achievementsResponse struct {
	Achievements []achievementResponse `json:"achievements"`
}

type ledgerEntryResponse struct {
	Seq          int64  `json:"seq"`
	Amount       int    `json:"amount"`
	SourceKind   string `json:"source_kind"`
	SourceID     string `json:"source_id"`
	BalanceAfter int    `json:"balance_after"`
	CreatedAt    string `json:"created_at"`
}

type historyResponse struct {
	Entries       []ledgerEntryResponse `json:"entries"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func newRewardStateResponse(state domain.RewardState) rewardStateResponse {
	return rewardStateResponse{
		UserID:                   state.UserID,
		TotalCoins:               state.TotalCoins,
		UnlockedAchievementCount: state.UnlockedAchievementCount,
		UpdatedAt:                formatTime(state.UpdatedAt),
	}
}

func newUnlockResponses(thresholds []int, localizer render.Localizer) []unlockResponse {
	out := make([]unlockResponse, 0, len(thresholds))
	for _, threshold := range thresholds {
		out = append(out, unlockResponse{
			Threshold: threshold,
			Title:     localizer.AchievementTitle(threshold),
			Message:   localizer.AchievementUnlocked(threshold),
		})
	}
	return out
}

func newRewardResponse(result domain.CreditResult, localizer render.Localizer) rewardResponse {
	return rewardResponse{
		State:         newRewardStateResponse(result.State),
		NewlyUnlocked: newUnlockResponses(result.NewlyUnlocked, localizer),
		Replayed:      result.Replayed,
	}
}

func newFoodEntryResponse(entry domain.FoodLogEntry) logEntryResponse {
	return logEntryResponse{
		ID:           entry.ID,
		Kind:         entryKindFood,
		Name:         entry.FoodName,
		CaloriesKcal: entry.CaloriesKcal,
		ServingQty:   entry.ServingQty,
		ServingUnit:  entry.ServingUnit,
		Date:         entry.LogDate.String(),
		CreatedAt:    formatTime(entry.CreatedAt),
	}
}

// newActivityEntryResponse reports burned kcal as a negative amount so a
// merged day listing sums to the net.
func newActivityEntryResponse(entry domain.ActivityLogEntry, name string) logEntryResponse {
	if name == "" {
		name = entry.ActivityID
	}
	return logEntryResponse{
		ID:              entry.ID,
		Kind:            entryKindActivity,
		Name:            name,
		CaloriesKcal:    -entry.CaloriesBurned,
		ActivityID:      entry.ActivityID,
		DurationMinutes: entry.DurationMinutes,
		Date:            entry.LogDate.String(),
		CreatedAt:       formatTime(entry.CreatedAt),
	}
}

func newDailySummaryResponse(summary domain.DailySummary, localizer render.Localizer) dailySummaryResponse {
	out := dailySummaryResponse{
		Date:        summary.LogDate.String(),
		CaloriesIn:  summary.CaloriesIn,
		CaloriesOut: summary.CaloriesOut,
		NetCalories: summary.NetCalories,
	}
	if localizer != nil {
		out.NetLabel = localizer.NetCalories(summary.NetCalories)
		out.Tier = render.MotivationTier(summary.NetCalories)
		out.Motivation = localizer.Motivation(summary.NetCalories)
		out.MotivationSource = motivationSourceRules
	}
	return out
}

func newFoodResponses(foods []nutrition.Food) []foodResponse {
	out := make([]foodResponse, 0, len(foods))
	for _, food := range foods {
		out = append(out, foodResponse{
			FDCID:        food.FDCID,
			Name:         food.Name,
			CaloriesKcal: food.CaloriesKcal,
			Unit:         food.Unit,
		})
	}
	return out
}
