package ledger

import "net/http"

// Route paths.
const (
	HealthPath       = "/healthz"
	ActivitiesPath   = "/v1/activities"
	FoodSearchPath   = "/v1/foods/search"
	FoodLogPath      = "/v1/logs/food"
	ActivityLogPath  = "/v1/logs/activity"
	LogsPath         = "/v1/logs"
	DailySummaryPath = "/v1/summary/daily"
	WeeklyPath       = "/v1/summary/weekly"
	RewardsPath      = "/v1/rewards"
	HistoryPath      = "/v1/rewards/history"
	StreamPath       = "/v1/rewards/stream"
	AchievementsPath = "/v1/achievements"
	WeightPath       = "/v1/profile/weight"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+ActivitiesPath, h.handleActivities)
	mux.HandleFunc(http.MethodGet+" "+FoodSearchPath, h.handleFoodSearch)
	mux.HandleFunc(http.MethodPost+" "+FoodLogPath, h.handleLogFood)
	mux.HandleFunc(http.MethodPost+" "+ActivityLogPath, h.handleLogActivity)
	mux.HandleFunc(http.MethodGet+" "+LogsPath, h.handleDailyLog)
	mux.HandleFunc(http.MethodGet+" "+DailySummaryPath, h.handleDailySummary)
	mux.HandleFunc(http.MethodGet+" "+WeeklyPath, h.handleWeeklySummary)
	mux.HandleFunc(http.MethodGet+" "+RewardsPath, h.handleRewards)
	mux.HandleFunc(http.MethodGet+" "+HistoryPath, h.handleHistory)
	mux.HandleFunc(http.MethodGet+" "+StreamPath, h.handleStream)
	mux.HandleFunc(http.MethodGet+" "+AchievementsPath, h.handleAchievements)
	mux.HandleFunc(http.MethodPut+" "+WeightPath, h.handleSetWeight)
}
