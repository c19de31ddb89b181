package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
	"github.com/louisbranch/kalori/internal/services/ledger/domain"
	"github.com/louisbranch/kalori/internal/services/ledger/storage"
)

// ledgerStore is every storage contract the domain needs.
type ledgerStore interface {
	storage.LogStore
	storage.RewardStore
	storage.ProfileStore
	storage.ActivityDefinitionStore
}

type domainStoreAdapter struct {
	store ledgerStore
}

func newDomainStoreAdapter(store ledgerStore) *domainStoreAdapter {
	return &domainStoreAdapter{store: store}
}

var _ domain.Store = (*domainStoreAdapter)(nil)

func (a *domainStoreAdapter) ListLogsForDate(ctx context.Context, userID string, date domain.Date) (domain.DayLogs, error) {
	if a == nil || a.store == nil {
		return domain.DayLogs{}, domain.ErrStoreNotConfigured
	}
	foodRecords, err := a.store.ListFoodLogs(ctx, userID, date.String())
	if err != nil {
		return domain.DayLogs{}, mapStorageError(err)
	}
	activityRecords, err := a.store.ListActivityLogs(ctx, userID, date.String())
	if err != nil {
		return domain.DayLogs{}, mapStorageError(err)
	}

	logs := domain.DayLogs{
		Food:       make([]domain.FoodLogEntry, 0, len(foodRecords)),
		Activities: make([]domain.ActivityLogEntry, 0, len(activityRecords)),
	}
	for _, record := range foodRecords {
		entry, err := toDomainFoodLog(record)
		if err != nil {
			return domain.DayLogs{}, err
		}
		logs.Food = append(logs.Food, entry)
	}
	for _, record := range activityRecords {
		entry, err := toDomainActivityLog(record)
		if err != nil {
			return domain.DayLogs{}, err
		}
		logs.Activities = append(logs.Activities, entry)
	}
	return logs, nil
}

func (a *domainStoreAdapter) ApplyCredit(ctx context.Context, credit domain.CreditRequest) (domain.CreditOutcome, error) {
	if a == nil || a.store == nil {
		return domain.CreditOutcome{}, domain.ErrStoreNotConfigured
	}
	result, err := a.store.ApplyCredit(ctx, toStorageCredit(credit))
	if err != nil {
		return domain.CreditOutcome{}, mapStorageError(err)
	}
	return toDomainOutcome(result), nil
}

func (a *domainStoreAdapter) PutFoodLog(ctx context.Context, entry domain.FoodLogEntry, credit domain.CreditRequest) (domain.CreditOutcome, error) {
	if a == nil || a.store == nil {
		return domain.CreditOutcome{}, domain.ErrStoreNotConfigured
	}
	result, err := a.store.PutFoodLog(ctx, storage.FoodLogRecord{
		ID:           entry.ID,
		UserID:       entry.UserID,
		FoodName:     entry.FoodName,
		CaloriesKcal: entry.CaloriesKcal,
		ServingQty:   entry.ServingQty,
		ServingUnit:  entry.ServingUnit,
		LogDate:      entry.LogDate.String(),
		CreatedAt:    entry.CreatedAt,
	}, toStorageCredit(credit))
	if err != nil {
		return domain.CreditOutcome{}, mapStorageError(err)
	}
	return toDomainOutcome(result), nil
}

// PutActivityLog reports a missing activity row as ActivityNotFound so a
// catalog change between lookup and write is not treated as an outage.
func (a *domainStoreAdapter) PutActivityLog(ctx context.Context, entry domain.ActivityLogEntry, credit domain.CreditRequest) (domain.CreditOutcome, error) {
	if a == nil || a.store == nil {
		return domain.CreditOutcome{}, domain.ErrStoreNotConfigured
	}
	result, err := a.store.PutActivityLog(ctx, storage.ActivityLogRecord{
		ID:              entry.ID,
		UserID:          entry.UserID,
		ActivityID:      entry.ActivityID,
		DurationMinutes: entry.DurationMinutes,
		CaloriesBurned:  entry.CaloriesBurned,
		LogDate:         entry.LogDate.String(),
		CreatedAt:       entry.CreatedAt,
	}, toStorageCredit(credit))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.CreditOutcome{}, apperrors.WrapWithMetadata(
			apperrors.CodeActivityNotFound,
			"activity not found",
			map[string]string{"ActivityID": entry.ActivityID},
			err,
		)
	}
	if err != nil {
		return domain.CreditOutcome{}, mapStorageError(err)
	}
	return toDomainOutcome(result), nil
}

func (a *domainStoreAdapter) GetRewardState(ctx context.Context, userID string) (domain.RewardState, error) {
	if a == nil || a.store == nil {
		return domain.RewardState{}, domain.ErrStoreNotConfigured
	}
	record, err := a.store.GetRewardState(ctx, userID)
	if err != nil {
		return domain.RewardState{}, mapStorageError(err)
	}
	return domain.RewardState{
		UserID:                   record.UserID,
		TotalCoins:               record.TotalCoins,
		UnlockedAchievementCount: record.UnlockedAchievementCount,
		UpdatedAt:                record.UpdatedAt,
	}, nil
}

func (a *domainStoreAdapter) ListAchievementUnlocks(ctx context.Context, userID string) ([]domain.AchievementUnlock, error) {
	if a == nil || a.store == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.store.ListAchievementUnlocks(ctx, userID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	unlocks := make([]domain.AchievementUnlock, 0, len(records))
	for _, record := range records {
		unlocks = append(unlocks, domain.AchievementUnlock{
			Threshold:  record.Threshold,
			UnlockedAt: record.UnlockedAt,
		})
	}
	return unlocks, nil
}

func (a *domainStoreAdapter) ListLedgerEntries(ctx context.Context, userID string, pageSize int, pageToken string) (domain.LedgerPage, error) {
	if a == nil || a.store == nil {
		return domain.LedgerPage{}, domain.ErrStoreNotConfigured
	}
	page, err := a.store.ListLedgerEntries(ctx, userID, pageSize, pageToken)
	if err != nil {
		return domain.LedgerPage{}, mapStorageError(err)
	}
	out := domain.LedgerPage{
		Entries:       make([]domain.LedgerEntry, 0, len(page.Entries)),
		NextPageToken: page.NextPageToken,
	}
	for _, record := range page.Entries {
		out.Entries = append(out.Entries, domain.LedgerEntry{
			Seq:          record.Seq,
			UserID:       record.UserID,
			Amount:       record.Amount,
			SourceKind:   record.SourceKind,
			SourceID:     record.SourceID,
			BalanceAfter: record.BalanceAfter,
			CreatedAt:    record.CreatedAt,
		})
	}
	return out, nil
}

func (a *domainStoreAdapter) GetProfileWeight(ctx context.Context, userID string) (float64, error) {
	if a == nil || a.store == nil {
		return 0, domain.ErrStoreNotConfigured
	}
	weightKg, err := a.store.GetProfileWeight(ctx, userID)
	if err != nil {
		return 0, mapStorageError(err)
	}
	return weightKg, nil
}

func (a *domainStoreAdapter) PutProfileWeight(ctx context.Context, userID string, weightKg float64, at time.Time) error {
	if a == nil || a.store == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageError(a.store.PutProfileWeight(ctx, userID, weightKg, at))
}

func (a *domainStoreAdapter) ListActivityDefinitions(ctx context.Context) ([]domain.ActivityDefinition, error) {
	if a == nil || a.store == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.store.ListActivityDefinitions(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	definitions := make([]domain.ActivityDefinition, 0, len(records))
	for _, record := range records {
		definitions = append(definitions, domain.ActivityDefinition{
			ID:       record.ID,
			Name:     record.Name,
			METValue: record.METValue,
		})
	}
	return definitions, nil
}

func toStorageCredit(credit domain.CreditRequest) storage.CreditRecord {
	return storage.CreditRecord{
		UserID:     credit.UserID,
		Amount:     credit.Amount,
		SourceKind: credit.SourceKind,
		SourceID:   credit.SourceID,
		CreatedAt:  credit.At,
		Thresholds: credit.Thresholds,
	}
}

func toDomainOutcome(result storage.CreditResult) domain.CreditOutcome {
	return domain.CreditOutcome{
		PreviousCoins:      result.PreviousCoins,
		TotalCoins:         result.TotalCoins,
		EntryBalanceBefore: result.EntryBalanceBefore,
		EntryBalanceAfter:  result.EntryBalanceAfter,
		Unlocked:           result.Unlocked,
		Replayed:           result.Replayed,
		UpdatedAt:          result.UpdatedAt,
	}
}

func toDomainFoodLog(record storage.FoodLogRecord) (domain.FoodLogEntry, error) {
	logDate, err := domain.ParseDate(record.LogDate)
	if err != nil {
		return domain.FoodLogEntry{}, fmt.Errorf("food log %s: %w", record.ID, err)
	}
	return domain.FoodLogEntry{
		ID:           record.ID,
		UserID:       record.UserID,
		FoodName:     record.FoodName,
		CaloriesKcal: record.CaloriesKcal,
		ServingQty:   record.ServingQty,
		ServingUnit:  record.ServingUnit,
		LogDate:      logDate,
		CreatedAt:    record.CreatedAt,
	}, nil
}

func toDomainActivityLog(record storage.ActivityLogRecord) (domain.ActivityLogEntry, error) {
	logDate, err := domain.ParseDate(record.LogDate)
	if err != nil {
		return domain.ActivityLogEntry{}, fmt.Errorf("activity log %s: %w", record.ID, err)
	}
	return domain.ActivityLogEntry{
		ID:              record.ID,
		UserID:          record.UserID,
		ActivityID:      record.ActivityID,
		DurationMinutes: record.DurationMinutes,
		CaloriesBurned:  record.CaloriesBurned,
		LogDate:         logDate,
		CreatedAt:       record.CreatedAt,
	}, nil
}

func toStorageDefinitions(definitions []domain.ActivityDefinition) []storage.ActivityDefinitionRecord {
	records := make([]storage.ActivityDefinitionRecord, 0, len(definitions))
	for _, definition := range definitions {
		records = append(records, storage.ActivityDefinitionRecord{
			ID:       definition.ID,
			Name:     definition.Name,
			METValue: definition.METValue,
		})
	}
	return records
}

func mapStorageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, storage.ErrBusy):
		return fmt.Errorf("%w: %v", domain.ErrTransientStorage, err)
	case errors.Is(err, storage.ErrInvalidPageToken):
		return apperrors.Wrap(apperrors.CodePageTokenInvalid, "invalid page token", err)
	default:
		return err
	}
}
