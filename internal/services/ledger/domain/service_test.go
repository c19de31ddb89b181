package domain_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
	"github.com/louisbranch/kalori/internal/services/ledger/domain"
	"github.com/louisbranch/kalori/internal/testkit/ledgerfakes"
)

var fixedNow = time.Date(2026, time.March, 10, 8, 30, 0, 0, time.UTC)

func newTestService(store *ledgerfakes.Store, publisher domain.Publisher) *domain.Service {
	seq := 0
	return domain.NewService(store, publisher, domain.ServiceConfig{
		Credits: domain.DefaultCreditPolicy(),
		Ledger:  fastRetry,
		Clock:   func() time.Time { return fixedNow },
		NewID: func() (string, error) {
			seq++
			return fmt.Sprintf("log-%d", seq), nil
		},
	})
}

func TestServiceLogFoodCreditsCoins(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	store.SetCoins("user-1", 95)
	publisher := &ledgerfakes.Publisher{}
	service := newTestService(store, publisher)

	result, err := service.LogFood(context.Background(), domain.FoodLogInput{
		UserID:       "user-1",
		FoodName:     " Nasi goreng ",
		CaloriesKcal: 520,
		ServingQty:   1,
		ServingUnit:  "plate",
	})
	if err != nil {
		t.Fatalf("log food: %v", err)
	}
	if result.Entry.ID != "log-1" || result.Entry.FoodName != "Nasi goreng" {
		t.Fatalf("entry = %+v", result.Entry)
	}
	if result.Entry.LogDate != domain.DateOf(fixedNow) {
		t.Fatalf("log date = %s, want today", result.Entry.LogDate)
	}
	if result.Reward.State.TotalCoins != 105 || !slices.Equal(result.Reward.NewlyUnlocked, []int{100}) {
		t.Fatalf("reward = %+v", result.Reward)
	}
	if len(store.Food) != 1 || len(store.Ledger) != 1 {
		t.Fatalf("store food=%d ledger=%d, want 1 and 1", len(store.Food), len(store.Ledger))
	}
	if entry := store.Ledger[0]; entry.SourceKind != domain.SourceFoodLog || entry.SourceID != "log-1" {
		t.Fatalf("ledger entry = %+v", entry)
	}
	if updates := publisher.Snapshot(); len(updates) != 1 || updates[0].State.TotalCoins != 105 {
		t.Fatalf("updates = %+v", updates)
	}
}

func TestServiceLogFoodValidation(t *testing.T) {
	t.Parallel()

	valid := domain.FoodLogInput{UserID: "u", FoodName: "apple", CaloriesKcal: 95, ServingQty: 1, ServingUnit: "piece"}
	tests := []struct {
		name   string
		mutate func(*domain.FoodLogInput)
		want   apperrors.Code
	}{
		{name: "user", mutate: func(in *domain.FoodLogInput) { in.UserID = "" }, want: apperrors.CodeUserIDRequired},
		{name: "name", mutate: func(in *domain.FoodLogInput) { in.FoodName = "  " }, want: apperrors.CodeLogFoodNameEmpty},
		{name: "calories", mutate: func(in *domain.FoodLogInput) { in.CaloriesKcal = -1 }, want: apperrors.CodeLogCaloriesNegative},
		{name: "quantity", mutate: func(in *domain.FoodLogInput) { in.ServingQty = 0 }, want: apperrors.CodeLogServingQtyInvalid},
		{name: "unit", mutate: func(in *domain.FoodLogInput) { in.ServingUnit = "" }, want: apperrors.CodeLogServingUnitEmpty},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := ledgerfakes.NewStore()
			service := newTestService(store, nil)
			input := valid
			tc.mutate(&input)
			_, err := service.LogFood(context.Background(), input)
			if got := apperrors.GetCode(err); got != tc.want {
				t.Fatalf("code = %s, want %s", got, tc.want)
			}
			if store.WriteCalls != 0 {
				t.Fatal("rejected input must not reach storage")
			}
		})
	}
}

func TestServiceLogActivityUsesProfileWeight(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	store.Definitions = []domain.ActivityDefinition{{ID: "running", Name: "Running", METValue: 9.8}}
	store.Weights["user-1"] = 82.5
	service := newTestService(store, nil)

	result, err := service.LogActivity(context.Background(), domain.ActivityLogInput{
		UserID:          "user-1",
		ActivityID:      "running",
		DurationMinutes: 45,
		LogDate:         anchor,
	})
	if err != nil {
		t.Fatalf("log activity: %v", err)
	}
	if result.Entry.CaloriesBurned != 637 || result.WeightKg != 82.5 {
		t.Fatalf("result = %+v", result)
	}
	if result.Reward.State.TotalCoins != 15 {
		t.Fatalf("coins = %d, want 15", result.Reward.State.TotalCoins)
	}
	if result.Entry.LogDate != anchor {
		t.Fatalf("log date = %s, want %s", result.Entry.LogDate, anchor)
	}
}

func TestServiceLogActivityDefaultsMissingWeight(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	store.Definitions = []domain.ActivityDefinition{{ID: "jogging", Name: "Jogging", METValue: 6.0}}
	service := newTestService(store, nil)

	result, err := service.LogActivity(context.Background(), domain.ActivityLogInput{UserID: "u", ActivityID: "jogging", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("log activity: %v", err)
	}
	want, err := domain.CaloriesBurned(6.0, 70, 30)
	if err != nil {
		t.Fatalf("calories: %v", err)
	}
	if result.Entry.CaloriesBurned != want || result.WeightKg != domain.DefaultWeightKg {
		t.Fatalf("burned = %d at %.1f kg, want %d at 70 kg", result.Entry.CaloriesBurned, result.WeightKg, want)
	}
}

func TestServiceLogActivityUnknownActivityIsFatal(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	service := newTestService(store, nil)

	_, err := service.LogActivity(context.Background(), domain.ActivityLogInput{UserID: "u", ActivityID: "flying", DurationMinutes: 10})
	if got := apperrors.GetCode(err); got != apperrors.CodeActivityNotFound {
		t.Fatalf("code = %s, want %s", got, apperrors.CodeActivityNotFound)
	}
	if len(store.Activities) != 0 || len(store.Ledger) != 0 {
		t.Fatal("failed log must leave no partial state")
	}
}

func TestServiceLogActivityRejectsNonPositiveDuration(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	service := newTestService(store, nil)
	_, err := service.LogActivity(context.Background(), domain.ActivityLogInput{UserID: "u", ActivityID: "walking", DurationMinutes: 0})
	if got := apperrors.GetCode(err); got != apperrors.CodeLogDurationInvalid {
		t.Fatalf("code = %s, want %s", got, apperrors.CodeLogDurationInvalid)
	}
	if store.DefinitionCalls != 0 {
		t.Fatal("validation must run before catalog lookup")
	}
}

func TestServiceLogFoodRetriesWithSameEntry(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	store.FailWrites(domain.ErrTransientStorage)
	service := newTestService(store, nil)

	result, err := service.LogFood(context.Background(), domain.FoodLogInput{UserID: "u", FoodName: "tea", CaloriesKcal: 2, ServingQty: 1, ServingUnit: "cup"})
	if err != nil {
		t.Fatalf("log food: %v", err)
	}
	if len(store.Food) != 1 || store.Food[0].ID != result.Entry.ID {
		t.Fatalf("food = %+v", store.Food)
	}
	if len(store.Ledger) != 1 || store.Ledger[0].SourceID != result.Entry.ID {
		t.Fatalf("ledger = %+v", store.Ledger)
	}
}

func TestServiceDailyLogSortedOldestFirst(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	late := food("u", anchor, 10)
	late.CreatedAt = fixedNow.Add(time.Hour)
	early := food("u", anchor, 20)
	early.CreatedAt = fixedNow
	store.Food = []domain.FoodLogEntry{late, early}
	service := newTestService(store, nil)

	logs, err := service.DailyLog(context.Background(), "u", anchor)
	if err != nil {
		t.Fatalf("daily log: %v", err)
	}
	if len(logs.Food) != 2 || logs.Food[0].CaloriesKcal != 20 {
		t.Fatalf("food = %+v", logs.Food)
	}
}

func TestServiceSetWeight(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	service := newTestService(store, nil)
	if err := service.SetWeight(context.Background(), "u", 64.2); err != nil {
		t.Fatalf("set weight: %v", err)
	}
	if store.Weights["u"] != 64.2 {
		t.Fatalf("weight = %v", store.Weights["u"])
	}
	for _, bad := range []float64{0, -3, 1e6} {
		if err := service.SetWeight(context.Background(), "u", bad); apperrors.GetCode(err) != apperrors.CodeProfileWeightInvalid {
			t.Fatalf("weight %v: expected invalid, got %v", bad, err)
		}
	}
}

func TestServiceNewIDFailure(t *testing.T) {
	t.Parallel()

	service := domain.NewService(ledgerfakes.NewStore(), nil, domain.ServiceConfig{
		NewID: func() (string, error) { return "", errors.New("entropy") },
	})
	_, err := service.LogFood(context.Background(), domain.FoodLogInput{UserID: "u", FoodName: "x", ServingQty: 1, ServingUnit: "g"})
	if err == nil {
		t.Fatal("expected id error")
	}
}
