package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
	"github.com/louisbranch/kalori/internal/platform/id"
)

const maxWeightKg = 700.0

// CreditPolicy is the coin amount granted per successful log action.
type CreditPolicy struct {
	FoodLogCoins     int
	ActivityLogCoins int
}

// DefaultCreditPolicy grants 10 coins per food entry and 15 per activity.
func DefaultCreditPolicy() CreditPolicy {
	return CreditPolicy{FoodLogCoins: 10, ActivityLogCoins: 15}
}

// ServiceConfig wires the ledger service.
type ServiceConfig struct {
	Credits          CreditPolicy
	Ledger           LedgerConfig
	ActivityCacheTTL time.Duration
	Clock            func() time.Time
	NewID            func() (string, error)
}

// FoodLogInput is a food logging action.
type FoodLogInput struct {
	UserID       string
	FoodName     string
	CaloriesKcal int
	ServingQty   float64
	ServingUnit  string
	LogDate      Date
}

// ActivityLogInput is an activity logging action.
type ActivityLogInput struct {
	UserID          string
	ActivityID      string
	DurationMinutes int
	LogDate         Date
}

// FoodLogResult is the persisted entry and the reward it earned.
type FoodLogResult struct {
	Entry  FoodLogEntry
	Reward CreditResult
}

// ActivityLogResult is the persisted entry, its inputs and the reward it earned.
type ActivityLogResult struct {
	Entry    ActivityLogEntry
	Activity ActivityDefinition
	WeightKg float64
	Reward   CreditResult
}

// Service coordinates logging, aggregation and rewards for the ledger.
type Service struct {
	store      Store
	ledger     *Ledger
	aggregator *Aggregator
	directory  *ActivityDirectory
	credits    CreditPolicy
	clock      func() time.Time
	newID      func() (string, error)
}

// NewService builds the ledger service. publisher may be nil.
func NewService(store Store, publisher Publisher, cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	if cfg.Credits.FoodLogCoins < 0 {
		cfg.Credits.FoodLogCoins = 0
	}
	if cfg.Credits.ActivityLogCoins < 0 {
		cfg.Credits.ActivityLogCoins = 0
	}
	ledger := NewLedger(store, publisher, cfg.Ledger)
	ledger.clock = cfg.Clock
	directory := NewActivityDirectory(store, cfg.ActivityCacheTTL)
	directory.clock = cfg.Clock
	return &Service{
		store:      store,
		ledger:     ledger,
		aggregator: NewAggregator(store),
		directory:  directory,
		credits:    cfg.Credits,
		clock:      cfg.Clock,
		newID:      cfg.NewID,
	}
}

// LogFood persists a food entry and credits its coins in one unit of work.
func (s *Service) LogFood(ctx context.Context, input FoodLogInput) (FoodLogResult, error) {
	if s == nil || s.store == nil {
		return FoodLogResult{}, ErrStoreNotConfigured
	}
	entry, err := s.newFoodEntry(input)
	if err != nil {
		return FoodLogResult{}, err
	}
	credit, err := s.ledger.normalizeCredit(CreditRequest{
		UserID:     entry.UserID,
		Amount:     s.credits.FoodLogCoins,
		SourceKind: SourceFoodLog,
		SourceID:   entry.ID,
		At:         entry.CreatedAt,
	})
	if err != nil {
		return FoodLogResult{}, err
	}
	reward, err := s.ledger.record(ctx, entry.UserID, func(ctx context.Context) (CreditOutcome, error) {
		return s.store.PutFoodLog(ctx, entry, credit)
	})
	if err != nil {
		return FoodLogResult{}, err
	}
	return FoodLogResult{Entry: entry, Reward: reward}, nil
}

// LogActivity derives burned kcal from the activity MET and the user's
// weight, then persists the entry and credits its coins in one unit of work.
func (s *Service) LogActivity(ctx context.Context, input ActivityLogInput) (ActivityLogResult, error) {
	if s == nil || s.store == nil {
		return ActivityLogResult{}, ErrStoreNotConfigured
	}
	input.UserID = strings.TrimSpace(input.UserID)
	input.ActivityID = strings.TrimSpace(input.ActivityID)
	if input.UserID == "" {
		return ActivityLogResult{}, apperrors.New(apperrors.CodeUserIDRequired, "user id is required")
	}
	if input.ActivityID == "" {
		return ActivityLogResult{}, apperrors.New(apperrors.CodeLogActivityIDEmpty, "activity id is required")
	}
	if input.DurationMinutes <= 0 {
		return ActivityLogResult{}, apperrors.New(apperrors.CodeLogDurationInvalid, "duration must be positive")
	}

	activity, err := s.directory.Get(ctx, input.ActivityID)
	if err != nil {
		return ActivityLogResult{}, err
	}
	weightKg, err := s.profileWeight(ctx, input.UserID)
	if err != nil {
		return ActivityLogResult{}, err
	}
	burned, err := CaloriesBurned(activity.METValue, weightKg, input.DurationMinutes)
	if err != nil {
		return ActivityLogResult{}, err
	}

	entryID, err := s.newID()
	if err != nil {
		return ActivityLogResult{}, fmt.Errorf("new activity log id: %w", err)
	}
	now := s.clock().UTC()
	entry := ActivityLogEntry{
		ID:              entryID,
		UserID:          input.UserID,
		ActivityID:      activity.ID,
		DurationMinutes: input.DurationMinutes,
		CaloriesBurned:  burned,
		LogDate:         s.logDate(input.LogDate, now),
		CreatedAt:       now,
	}
	credit, err := s.ledger.normalizeCredit(CreditRequest{
		UserID:     entry.UserID,
		Amount:     s.credits.ActivityLogCoins,
		SourceKind: SourceActivityLog,
		SourceID:   entry.ID,
		At:         now,
	})
	if err != nil {
		return ActivityLogResult{}, err
	}
	reward, err := s.ledger.record(ctx, entry.UserID, func(ctx context.Context) (CreditOutcome, error) {
		return s.store.PutActivityLog(ctx, entry, credit)
	})
	if err != nil {
		return ActivityLogResult{}, err
	}
	return ActivityLogResult{Entry: entry, Activity: activity, WeightKg: weightKg, Reward: reward}, nil
}

// DailyLog returns the entries logged on date, oldest first.
func (s *Service) DailyLog(ctx context.Context, userID string, date Date) (DayLogs, error) {
	if s == nil || s.store == nil {
		return DayLogs{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return DayLogs{}, apperrors.New(apperrors.CodeUserIDRequired, "user id is required")
	}
	logs, err := s.store.ListLogsForDate(ctx, userID, date)
	if err != nil {
		return DayLogs{}, storageError("list logs for date", err)
	}
	slices.SortStableFunc(logs.Food, func(a, b FoodLogEntry) int { return a.CreatedAt.Compare(b.CreatedAt) })
	slices.SortStableFunc(logs.Activities, func(a, b ActivityLogEntry) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return logs, nil
}

// SetWeight stores the profile weight used for activity calories.
func (s *Service) SetWeight(ctx context.Context, userID string, weightKg float64) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperrors.New(apperrors.CodeUserIDRequired, "user id is required")
	}
	if math.IsNaN(weightKg) || math.IsInf(weightKg, 0) || weightKg <= 0 || weightKg > maxWeightKg {
		return apperrors.WithMetadata(
			apperrors.CodeProfileWeightInvalid,
			"weight must be positive",
			map[string]string{"Value": fmt.Sprint(weightKg)},
		)
	}
	if err := s.store.PutProfileWeight(ctx, userID, weightKg, s.clock().UTC()); err != nil {
		return storageError("put profile weight", err)
	}
	return nil
}

// Credit applies a manual credit through the ledger.
func (s *Service) Credit(ctx context.Context, request CreditRequest) (CreditResult, error) {
	return s.ledger.Credit(ctx, request)
}

// Rewards returns the user's reward state.
func (s *Service) Rewards(ctx context.Context, userID string) (RewardState, error) {
	return s.ledger.Read(ctx, userID)
}

// Achievements lists every threshold with its unlock state.
func (s *Service) Achievements(ctx context.Context, userID string) ([]Achievement, error) {
	return s.ledger.Achievements(ctx, userID)
}

// History pages through applied credits, newest first.
func (s *Service) History(ctx context.Context, userID string, pageSize int, pageToken string) (LedgerPage, error) {
	return s.ledger.History(ctx, userID, pageSize, pageToken)
}

// Daily summarizes one date.
func (s *Service) Daily(ctx context.Context, userID string, date Date) (DailySummary, error) {
	return s.aggregator.Daily(ctx, userID, date)
}

// Weekly summarizes the seven days ending at anchor.
func (s *Service) Weekly(ctx context.Context, userID string, anchor Date) (WeeklySummary, error) {
	return s.aggregator.Weekly(ctx, userID, anchor)
}

// Activities lists the activity catalog.
func (s *Service) Activities(ctx context.Context) ([]ActivityDefinition, error) {
	return s.directory.List(ctx)
}

func (s *Service) newFoodEntry(input FoodLogInput) (FoodLogEntry, error) {
	input.UserID = strings.TrimSpace(input.UserID)
	input.FoodName = strings.TrimSpace(input.FoodName)
	input.ServingUnit = strings.TrimSpace(input.ServingUnit)
	if input.UserID == "" {
		return FoodLogEntry{}, apperrors.New(apperrors.CodeUserIDRequired, "user id is required")
	}
	if input.FoodName == "" {
		return FoodLogEntry{}, apperrors.New(apperrors.CodeLogFoodNameEmpty, "food name is required")
	}
	if input.CaloriesKcal < 0 {
		return FoodLogEntry{}, apperrors.New(apperrors.CodeLogCaloriesNegative, "calories must be non-negative")
	}
	if math.IsNaN(input.ServingQty) || math.IsInf(input.ServingQty, 0) || input.ServingQty <= 0 {
		return FoodLogEntry{}, apperrors.New(apperrors.CodeLogServingQtyInvalid, "serving quantity must be positive")
	}
	if input.ServingUnit == "" {
		return FoodLogEntry{}, apperrors.New(apperrors.CodeLogServingUnitEmpty, "serving unit is required")
	}

	entryID, err := s.newID()
	if err != nil {
		return FoodLogEntry{}, fmt.Errorf("new food log id: %w", err)
	}
	now := s.clock().UTC()
	return FoodLogEntry{
		ID:           entryID,
		UserID:       input.UserID,
		FoodName:     input.FoodName,
		CaloriesKcal: input.CaloriesKcal,
		ServingQty:   input.ServingQty,
		ServingUnit:  input.ServingUnit,
		LogDate:      s.logDate(input.LogDate, now),
		CreatedAt:    now,
	}, nil
}

// profileWeight returns the stored weight, or DefaultWeightKg when the
// profile has none.
func (s *Service) profileWeight(ctx context.Context, userID string) (float64, error) {
	weightKg, err := s.store.GetProfileWeight(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return DefaultWeightKg, nil
	}
	if err != nil {
		return 0, storageError("get profile weight", err)
	}
	return EffectiveWeight(weightKg), nil
}

func (s *Service) logDate(date Date, now time.Time) Date {
	if date.IsZero() {
		return DateOf(now)
	}
	return date
}
