package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
)

const (
	defaultCreditMaxAttempts     = 4
	defaultCreditInitialInterval = 25 * time.Millisecond
	defaultCreditMaxInterval     = 500 * time.Millisecond
)

// LedgerConfig controls how transient storage failures are retried.
type LedgerConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c LedgerConfig) normalized() LedgerConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultCreditMaxAttempts
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = defaultCreditInitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = defaultCreditMaxInterval
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = c.InitialInterval
	}
	return c
}

// CreditResult is the settled state after one credit.
type CreditResult struct {
	State RewardState
	// NewlyUnlocked lists thresholds crossed by this credit, ascending. A
	// threshold appears here at most once per user.
	NewlyUnlocked []int
	// Replayed reports that the credit source had already been applied
	// before this call.
	Replayed bool
}

// Ledger owns the coin balance and achievement state of every user.
type Ledger struct {
	store     RewardStore
	publisher Publisher
	locks     *userLocks
	config    LedgerConfig
	clock     func() time.Time
}

// NewLedger builds a ledger over store. publisher may be nil.
func NewLedger(store RewardStore, publisher Publisher, config LedgerConfig) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
		locks:     newUserLocks(),
		config:    config.normalized(),
		clock:     time.Now,
	}
}

// Credit applies a non-negative coin credit and reports newly crossed
// thresholds. Replaying the same (SourceKind, SourceID) is a no-op that
// returns the current state.
func (l *Ledger) Credit(ctx context.Context, request CreditRequest) (CreditResult, error) {
	if l == nil || l.store == nil {
		return CreditResult{}, ErrStoreNotConfigured
	}
	request, err := l.normalizeCredit(request)
	if err != nil {
		return CreditResult{}, err
	}
	return l.record(ctx, request.UserID, func(ctx context.Context) (CreditOutcome, error) {
		return l.store.ApplyCredit(ctx, request)
	})
}

// Read returns the current reward state without mutation. Users with no
// credits read as a zero state.
func (l *Ledger) Read(ctx context.Context, userID string) (RewardState, error) {
	if l == nil || l.store == nil {
		return RewardState{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return RewardState{}, apperrors.New(apperrors.CodeUserIDRequired, "user id is required")
	}
	state, err := l.store.GetRewardState(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return RewardState{UserID: userID}, nil
	}
	if err != nil {
		return RewardState{}, storageError("read reward state", err)
	}
	state.UserID = userID
	state.UnlockedAchievementCount = UnlockedCount(state.TotalCoins)
	return state, nil
}

// Achievements lists every threshold with the user's unlock state.
func (l *Ledger) Achievements(ctx context.Context, userID string) ([]Achievement, error) {
	state, err := l.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocks, err := l.store.ListAchievementUnlocks(ctx, state.UserID)
	if err != nil {
		return nil, storageError("list achievement unlocks", err)
	}
	unlockedAt := make(map[int]time.Time, len(unlocks))
	for _, unlock := range unlocks {
		unlockedAt[unlock.Threshold] = unlock.UnlockedAt
	}

	achievements := make([]Achievement, 0, len(AchievementThresholds))
	for _, threshold := range AchievementThresholds {
		achievement := Achievement{Threshold: threshold}
		if at, ok := unlockedAt[threshold]; ok {
			achievement.Unlocked = true
			achievement.UnlockedAt = at
		} else if threshold <= state.TotalCoins {
			// Balance is authoritative; a missing row is healed by the next credit.
			achievement.Unlocked = true
		}
		achievements = append(achievements, achievement)
	}
	return achievements, nil
}

// History lists applied credits, newest first.
func (l *Ledger) History(ctx context.Context, userID string, pageSize int, pageToken string) (LedgerPage, error) {
	if l == nil || l.store == nil {
		return LedgerPage{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return LedgerPage{}, apperrors.New(apperrors.CodeUserIDRequired, "user id is required")
	}
	page, err := l.store.ListLedgerEntries(ctx, userID, pageSize, strings.TrimSpace(pageToken))
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return LedgerPage{}, err
		}
		return LedgerPage{}, storageError("list ledger entries", err)
	}
	return page, nil
}

func (l *Ledger) normalizeCredit(request CreditRequest) (CreditRequest, error) {
	request.UserID = strings.TrimSpace(request.UserID)
	request.SourceKind = strings.TrimSpace(request.SourceKind)
	request.SourceID = strings.TrimSpace(request.SourceID)
	if request.UserID == "" {
		return CreditRequest{}, apperrors.New(apperrors.CodeUserIDRequired, "user id is required")
	}
	if request.Amount < 0 {
		return CreditRequest{}, apperrors.WithMetadata(
			apperrors.CodeCreditAmountNegative,
			"credit amount must be non-negative",
			map[string]string{"Amount": fmt.Sprint(request.Amount)},
		)
	}
	switch request.SourceKind {
	case SourceFoodLog, SourceActivityLog, SourceManual:
	default:
		return CreditRequest{}, apperrors.WithMetadata(
			apperrors.CodeCreditSourceInvalid,
			"credit source kind is invalid",
			map[string]string{"SourceKind": request.SourceKind},
		)
	}
	if request.SourceID == "" {
		return CreditRequest{}, apperrors.WithMetadata(
			apperrors.CodeCreditSourceInvalid,
			"credit source id is required",
			map[string]string{"SourceKind": request.SourceKind},
		)
	}
	if request.At.IsZero() {
		request.At = l.clock().UTC()
	}
	request.Thresholds = AchievementThresholds
	return request, nil
}

// record runs apply under the user's lock, retrying transient storage
// failures with the same request, then publishes the settled state.
func (l *Ledger) record(ctx context.Context, userID string, apply func(context.Context) (CreditOutcome, error)) (CreditResult, error) {
	release := l.locks.lock(userID)
	defer release()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = l.config.InitialInterval
	policy.MaxInterval = l.config.MaxInterval

	attempt := 0
	retried := false
	outcome, err := backoff.Retry(ctx, func() (CreditOutcome, error) {
		attempt++
		outcome, err := apply(ctx)
		if err == nil {
			return outcome, nil
		}
		if errors.Is(err, ErrTransientStorage) {
			retried = true
			log.Printf("ledger credit retry: user=%s attempt=%d err=%v", userID, attempt, err)
			return CreditOutcome{}, err
		}
		return CreditOutcome{}, backoff.Permanent(err)
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(l.config.MaxAttempts)))
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return CreditResult{}, err
		}
		return CreditResult{}, storageError("apply credit", err)
	}

	result := CreditResult{
		State: RewardState{
			UserID:                   userID,
			TotalCoins:               outcome.TotalCoins,
			UnlockedAchievementCount: UnlockedCount(outcome.TotalCoins),
			UpdatedAt:                outcome.UpdatedAt,
		},
		NewlyUnlocked: outcome.Unlocked,
		Replayed:      outcome.Replayed,
	}
	if outcome.Replayed {
		if !retried {
			return result, nil
		}
		// An earlier attempt committed but reported a transient failure, so
		// this call owns the entry and its crossings.
		result.Replayed = false
		result.NewlyUnlocked = CrossedThresholds(outcome.EntryBalanceBefore, outcome.EntryBalanceAfter)
		log.Printf("ledger credit recovered after retry: user=%s attempts=%d unlocked=%v", userID, attempt, result.NewlyUnlocked)
		l.publish(ctx, result)
		return result, nil
	}

	if outcome.TotalCoins < outcome.PreviousCoins {
		log.Printf("achievement unlock drift: user=%s balance decreased previous=%d total=%d", userID, outcome.PreviousCoins, outcome.TotalCoins)
	} else if crossed := CrossedThresholds(outcome.PreviousCoins, outcome.TotalCoins); !sameThresholds(crossed, outcome.Unlocked) {
		log.Printf("achievement unlock drift: user=%s previous=%d total=%d crossed=%v recorded=%v", userID, outcome.PreviousCoins, outcome.TotalCoins, crossed, outcome.Unlocked)
	}

	l.publish(ctx, result)
	return result, nil
}

func (l *Ledger) publish(ctx context.Context, result CreditResult) {
	if l.publisher != nil {
		l.publisher.Publish(ctx, RewardUpdate{State: result.State, NewlyUnlocked: result.NewlyUnlocked})
	}
}

func storageError(operation string, err error) error {
	if errors.Is(err, ErrStoreNotConfigured) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.Wrap(apperrors.CodeStorageUnavailable, operation, err)
}
