package ledger

import (
	"context"
	"log"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
	"github.com/louisbranch/kalori/internal/platform/httpx"
	"github.com/louisbranch/kalori/internal/platform/requestctx"
	"github.com/louisbranch/kalori/internal/platform/timeouts"
	"github.com/louisbranch/kalori/internal/services/ledger/domain"
	"github.com/louisbranch/kalori/internal/services/ledger/render"
)

// TimezoneHeader names the IANA zone used to resolve "today".
const TimezoneHeader = "X-Timezone"

func (h handlers) handleActivities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storageContext(r)
	defer cancel()
	definitions, err := h.service.Activities(ctx)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := activitiesResponse{Activities: make([]activityResponse, 0, len(definitions))}
	for _, definition := range definitions {
		out.Activities = append(out.Activities, activityResponse{
			ID:       definition.ID,
			Name:     definition.Name,
			METValue: definition.METValue,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h handlers) handleFoodSearch(w http.ResponseWriter, r *http.Request) {
	if h.foods == nil {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeNutritionLookupFailed, "food search is not configured"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.ExternalLookup)
	defer cancel()
	foods, err := h.foods.SearchFood(ctx, r.URL.Query().Get("q"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, foodSearchResponse{Foods: newFoodResponses(foods)})
}

func (h handlers) handleLogFood(w http.ResponseWriter, r *http.Request) {
	var request foodLogRequest
	if err := httpx.DecodeJSON(r, &request); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	date, err := h.resolveDate(r, request.Date)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx, cancel := h.storageContext(r)
	defer cancel()
	result, err := h.service.LogFood(ctx, domain.FoodLogInput{
		UserID:       requestctx.UserIDFromContext(ctx),
		FoodName:     request.FoodName,
		CaloriesKcal: request.CaloriesKcal,
		ServingQty:   request.ServingQty,
		ServingUnit:  request.ServingUnit,
		LogDate:      date,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, foodLogResponse{
		Entry:  newFoodEntryResponse(result.Entry),
		Reward: newRewardResponse(result.Reward, localizerFor(r)),
	})
}

func (h handlers) handleLogActivity(w http.ResponseWriter, r *http.Request) {
	var request activityLogRequest
	if err := httpx.DecodeJSON(r, &request); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	date, err := h.resolveDate(r, request.Date)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx, cancel := h.storageContext(r)
	defer cancel()
	result, err := h.service.LogActivity(ctx, domain.ActivityLogInput{
		UserID:          requestctx.UserIDFromContext(ctx),
		ActivityID:      request.ActivityID,
		DurationMinutes: request.DurationMinutes,
		LogDate:         date,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, activityLogResponse{
		Entry:    newActivityEntryResponse(result.Entry, result.Activity.Name),
		METValue: result.Activity.METValue,
		WeightKg: result.WeightKg,
		Reward:   newRewardResponse(result.Reward, localizerFor(r)),
	})
}

func (h handlers) handleDailyLog(w http.ResponseWriter, r *http.Request) {
	date, err := h.resolveDate(r, r.URL.Query().Get("date"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx, cancel := h.storageContext(r)
	defer cancel()
	logs, err := h.service.DailyLog(ctx, requestctx.UserIDFromContext(ctx), date)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	names := map[string]string{}
	if len(logs.Activities) > 0 {
		definitions, err := h.service.Activities(ctx)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		for _, definition := range definitions {
			names[definition.ID] = definition.Name
		}
	}

	type timedEntry struct {
		at    time.Time
		entry logEntryResponse
	}
	merged := make([]timedEntry, 0, len(logs.Food)+len(logs.Activities))
	for _, entry := range logs.Food {
		merged = append(merged, timedEntry{at: entry.CreatedAt, entry: newFoodEntryResponse(entry)})
	}
	for _, entry := range logs.Activities {
		merged = append(merged, timedEntry{at: entry.CreatedAt, entry: newActivityEntryResponse(entry, names[entry.ActivityID])})
	}
	slices.SortStableFunc(merged, func(a, b timedEntry) int { return a.at.Compare(b.at) })

	out := dailyLogResponse{Date: date.String(), Entries: make([]logEntryResponse, 0, len(merged))}
	for _, item := range merged {
		out.Entries = append(out.Entries, item.entry)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h handlers) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	date, err := h.resolveDate(r, r.URL.Query().Get("date"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx, cancel := h.storageContext(r)
	defer cancel()
	summary, err := h.service.Daily(ctx, requestctx.UserIDFromContext(ctx), date)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	localizer := localizerFor(r)
	out := newDailySummaryResponse(summary, localizer)
	if wantsCoach(r) {
		h.applyCoach(r, &out, localizer)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// applyCoach replaces the rule-based motivation with a generated one. Any
// coach failure keeps the rule-based text.
func (h handlers) applyCoach(r *http.Request, out *dailySummaryResponse, localizer render.Localizer) {
	if h.coach == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.ExternalLookup)
	defer cancel()
	message, err := h.coach.Generate(ctx, localizer.CoachPrompt(out.NetCalories))
	if err != nil {
		log.Printf("coach motivation fallback: request_id=%s err=%v", requestctx.RequestIDFromContext(r.Context()), err)
		return
	}
	out.Motivation = message
	out.MotivationSource = motivationSourceCoach
}

func wantsCoach(r *http.Request) bool {
	enabled, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get("coach")))
	return err == nil && enabled
}

func (h handlers) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	anchor, err := h.resolveDate(r, r.URL.Query().Get("date"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx, cancel := h.storageContext(r)
	defer cancel()
	summary, err := h.service.Weekly(ctx, requestctx.UserIDFromContext(ctx), anchor)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := weeklySummaryResponse{Anchor: summary.Anchor.String(), Days: make([]dailySummaryResponse, 0, len(summary.Days))}
	for _, day := range summary.Days {
		out.Days = append(out.Days, newDailySummaryResponse(day, nil))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h handlers) handleRewards(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storageContext(r)
	defer cancel()
	state, err := h.service.Rewards(ctx, requestctx.UserIDFromContext(ctx))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newRewardStateResponse(state))
}

func (h handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pageSize := 0
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpx.WriteError(w, r, apperrors.WithMetadata(
				apperrors.CodePageTokenInvalid,
				"page size must be a non-negative integer",
				map[string]string{"Value": raw},
			))
			return
		}
		pageSize = parsed
	}
	ctx, cancel := h.storageContext(r)
	defer cancel()
	page, err := h.service.History(ctx, requestctx.UserIDFromContext(ctx), pageSize, query.Get("page_token"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := historyResponse{Entries: make([]ledgerEntryResponse, 0, len(page.Entries)), NextPageToken: page.NextPageToken}
	for _, entry := range page.Entries {
		out.Entries = append(out.Entries, ledgerEntryResponse{
			Seq:          entry.Seq,
			Amount:       entry.Amount,
			SourceKind:   entry.SourceKind,
			SourceID:     entry.SourceID,
			BalanceAfter: entry.BalanceAfter,
			CreatedAt:    formatTime(entry.CreatedAt),
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h handlers) handleAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storageContext(r)
	defer cancel()
	achievements, err := h.service.Achievements(ctx, requestctx.UserIDFromContext(ctx))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	localizer := localizerFor(r)
	out := achievementsResponse{Achievements: make([]achievementResponse, 0, len(achievements))}
	for _, achievement := range achievements {
		out.Achievements = append(out.Achievements, achievementResponse{
			Threshold:  achievement.Threshold,
			Title:      localizer.AchievementTitle(achievement.Threshold),
			Unlocked:   achievement.Unlocked,
			UnlockedAt: formatTime(achievement.UnlockedAt),
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h handlers) handleSetWeight(w http.ResponseWriter, r *http.Request) {
	var request weightRequest
	if err := httpx.DecodeJSON(r, &request); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx, cancel := h.storageContext(r)
	defer cancel()
	if err := h.service.SetWeight(ctx, requestctx.UserIDFromContext(ctx), request.WeightKg); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveDate parses an explicit YYYY-MM-DD value, otherwise returns today in
// the request time zone.
func (h handlers) resolveDate(r *http.Request, value string) (domain.Date, error) {
	if strings.TrimSpace(value) != "" {
		return domain.ParseDate(value)
	}
	loc := h.location
	if zone := strings.TrimSpace(r.Header.Get(TimezoneHeader)); zone != "" {
		parsed, err := time.LoadLocation(zone)
		if err != nil {
			return domain.Date{}, apperrors.WrapWithMetadata(
				apperrors.CodeLogTimezoneInvalid,
				"load request time zone",
				map[string]string{"Value": zone},
				err,
			)
		}
		loc = parsed
	}
	return domain.Today(h.clock(), loc), nil
}

func (h handlers) storageContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeouts.StorageRequest)
}

func (h handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := httpx.WriteJSON(w, status, payload); err != nil {
		logWriteFailure(err)
	}
}

func localizerFor(r *http.Request) render.Localizer {
	if locale := strings.TrimSpace(r.URL.Query().Get("locale")); locale != "" {
		return render.For(locale)
	}
	return render.For(r.Header.Get("Accept-Language"))
}
