package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreNotConfigured indicates the domain service was built without a store.
	ErrStoreNotConfigured = errors.New("ledger store is not configured")
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("ledger record not found")
	// ErrTransientStorage indicates storage was temporarily unavailable; the
	// same operation may succeed when retried.
	ErrTransientStorage = errors.New("ledger storage temporarily unavailable")
)

// Source kinds recorded with every coin credit.
const (
	SourceFoodLog     = "food_log"
	SourceActivityLog = "activity_log"
	SourceManual      = "manual"
)

// FoodLogEntry is one logged food item.
type FoodLogEntry struct {
	ID           string
	UserID       string
	FoodName     string
	CaloriesKcal int
	ServingQty   float64
	ServingUnit  string
	LogDate      Date
	CreatedAt    time.Time
}

// ActivityLogEntry is one logged activity with its derived kcal.
type ActivityLogEntry struct {
	ID              string
	UserID          string
	ActivityID      string
	DurationMinutes int
	CaloriesBurned  int
	LogDate         Date
	CreatedAt       time.Time
}

// ActivityDefinition is reference data describing one MET activity.
type ActivityDefinition struct {
	ID       string
	Name     string
	METValue float64
}

// DayLogs holds every entry a user logged for one date.
type DayLogs struct {
	Food       []FoodLogEntry
	Activities []ActivityLogEntry
}

// CreditRequest is one idempotent coin credit. The pair (SourceKind,
// SourceID) identifies the credit per user: a replayed request changes
// nothing.
type CreditRequest struct {
	UserID     string
	Amount     int
	SourceKind string
	SourceID   string
	At         time.Time
	// Thresholds are the achievement thresholds the store records unlock
	// rows for once the new balance reaches them.
	Thresholds []int
}

// CreditOutcome reports the authoritative balances around one credit.
type CreditOutcome struct {
	PreviousCoins int
	TotalCoins    int
	// EntryBalanceBefore and EntryBalanceAfter bracket the ledger entry of
	// the credit source. On a replay they describe the original application.
	EntryBalanceBefore int
	EntryBalanceAfter  int
	// Unlocked lists the thresholds whose unlock row this credit wrote.
	Unlocked  []int
	Replayed  bool
	UpdatedAt time.Time
}

// LedgerEntry is one applied coin credit.
type LedgerEntry struct {
	Seq          int64
	UserID       string
	Amount       int
	SourceKind   string
	SourceID     string
	BalanceAfter int
	CreatedAt    time.Time
}

// LedgerPage is one page of ledger entries, newest first.
type LedgerPage struct {
	Entries       []LedgerEntry
	NextPageToken string
}

// LogReader reads persisted log entries.
type LogReader interface {
	ListLogsForDate(ctx context.Context, userID string, date Date) (DayLogs, error)
}

// RewardStore persists reward state. Every write is atomic: the balance,
// the ledger entry and the unlock rows change together or not at all.
type RewardStore interface {
	ApplyCredit(ctx context.Context, credit CreditRequest) (CreditOutcome, error)
	PutFoodLog(ctx context.Context, entry FoodLogEntry, credit CreditRequest) (CreditOutcome, error)
	PutActivityLog(ctx context.Context, entry ActivityLogEntry, credit CreditRequest) (CreditOutcome, error)
	GetRewardState(ctx context.Context, userID string) (RewardState, error)
	ListAchievementUnlocks(ctx context.Context, userID string) ([]AchievementUnlock, error)
	ListLedgerEntries(ctx context.Context, userID string, pageSize int, pageToken string) (LedgerPage, error)
}

// ProfileStore reads and writes profile weight.
type ProfileStore interface {
	GetProfileWeight(ctx context.Context, userID string) (float64, error)
	PutProfileWeight(ctx context.Context, userID string, weightKg float64, at time.Time) error
}

// ActivityCatalog lists activity reference data.
type ActivityCatalog interface {
	ListActivityDefinitions(ctx context.Context) ([]ActivityDefinition, error)
}

// Store is the full persistence contract of the ledger service.
type Store interface {
	LogReader
	RewardStore
	ProfileStore
	ActivityCatalog
}

// RewardUpdate is the snapshot published after a ledger mutation.
type RewardUpdate struct {
	State         RewardState
	NewlyUnlocked []int
}

// Publisher fans reward updates out to observers. Publish must not block on
// slow observers.
type Publisher interface {
	Publish(ctx context.Context, update RewardUpdate)
}

// Publishers fans one update out to several publishers in order.
type Publishers []Publisher

// Publish implements Publisher.
func (p Publishers) Publish(ctx context.Context, update RewardUpdate) {
	for _, publisher := range p {
		if publisher != nil {
			publisher.Publish(ctx, update)
		}
	}
}
