// Package storage defines persistence records and contracts for the ledger
// service.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
	// ErrBusy indicates the database was locked; the write may be retried.
	ErrBusy = errors.New("storage busy")
	// ErrInvalidPageToken indicates a page token that was not issued for the
	// requested listing.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// FoodLogRecord stores one food log row. LogDate is YYYY-MM-DD.
type FoodLogRecord struct {
	ID           string
	UserID       string
	FoodName     string
	CaloriesKcal int
	ServingQty   float64
	ServingUnit  string
	LogDate      string
	CreatedAt    time.Time
}

// ActivityLogRecord stores one activity log row. LogDate is YYYY-MM-DD.
type ActivityLogRecord struct {
	ID              string
	UserID          string
	ActivityID      string
	DurationMinutes int
	CaloriesBurned  int
	LogDate         string
	CreatedAt       time.Time
}

// ActivityDefinitionRecord stores one MET reference row.
type ActivityDefinitionRecord struct {
	ID       string
	Name     string
	METValue float64
}

// CreditRecord is one idempotent coin credit keyed by (UserID, SourceKind,
// SourceID). Unlock rows are written for every threshold the new balance
// reaches.
type CreditRecord struct {
	UserID     string
	Amount     int
	SourceKind string
	SourceID   string
	CreatedAt  time.Time
	Thresholds []int
}

// CreditResult reports balances read inside the credit transaction.
type CreditResult struct {
	PreviousCoins int
	TotalCoins    int
	// EntryBalanceBefore and EntryBalanceAfter bracket the coin_ledger row of
	// the credit source, including on replay.
	EntryBalanceBefore int
	EntryBalanceAfter  int
	Unlocked           []int
	Replayed           bool
	UpdatedAt          time.Time
}

// RewardStateRecord stores one user's balance row.
type RewardStateRecord struct {
	UserID                   string
	TotalCoins               int
	UnlockedAchievementCount int
	UpdatedAt                time.Time
}

// AchievementUnlockRecord stores when one threshold was first reached.
type AchievementUnlockRecord struct {
	UserID     string
	Threshold  int
	UnlockedAt time.Time
}

// LedgerEntryRecord stores one applied credit.
type LedgerEntryRecord struct {
	Seq          int64
	UserID       string
	Amount       int
	SourceKind   string
	SourceID     string
	BalanceAfter int
	CreatedAt    time.Time
}

// LedgerPage stores one page of ledger entries, newest first.
type LedgerPage struct {
	Entries       []LedgerEntryRecord
	NextPageToken string
}

// LogStore persists food and activity logs together with their credit.
type LogStore interface {
	PutFoodLog(ctx context.Context, record FoodLogRecord, credit CreditRecord) (CreditResult, error)
	PutActivityLog(ctx context.Context, record ActivityLogRecord, credit CreditRecord) (CreditResult, error)
	ListFoodLogs(ctx context.Context, userID string, logDate string) ([]FoodLogRecord, error)
	ListActivityLogs(ctx context.Context, userID string, logDate string) ([]ActivityLogRecord, error)
}

// RewardStore persists balances, unlocks and the coin ledger.
type RewardStore interface {
	ApplyCredit(ctx context.Context, credit CreditRecord) (CreditResult, error)
	GetRewardState(ctx context.Context, userID string) (RewardStateRecord, error)
	ListAchievementUnlocks(ctx context.Context, userID string) ([]AchievementUnlockRecord, error)
	ListLedgerEntries(ctx context.Context, userID string, pageSize int, pageToken string) (LedgerPage, error)
}

// ProfileStore persists profile weight.
type ProfileStore interface {
	GetProfileWeight(ctx context.Context, userID string) (float64, error)
	PutProfileWeight(ctx context.Context, userID string, weightKg float64, updatedAt time.Time) error
}

// ActivityDefinitionStore persists MET reference data.
type ActivityDefinitionStore interface {
	PutActivityDefinitions(ctx context.Context, records []ActivityDefinitionRecord) error
	ListActivityDefinitions(ctx context.Context) ([]ActivityDefinitionRecord, error)
}
