// Package ledgerfakes provides in-memory ledger collaborators for tests.
package ledgerfakes

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/louisbranch/kalori/internal/services/ledger/domain"
)

// Store is an in-memory domain.Store. Writes are atomic under one mutex.
type Store struct {
	mu sync.Mutex

	Food        []domain.FoodLogEntry
	Activities  []domain.ActivityLogEntry
	Definitions []domain.ActivityDefinition
	Weights     map[string]float64
	Coins       map[string]int
	UpdatedAt   map[string]time.Time
	Ledger      []domain.LedgerEntry
	Unlocks     map[string][]domain.AchievementUnlock
	applied     map[string]domain.LedgerEntry

	// failures are returned by the next writes, in order, before any mutation.
	failures []error
	// lostAcks are returned by the next writes, in order, after the write
	// has been applied.
	lostAcks []error
	// ReadErr is returned by every read when set.
	ReadErr error

	DefinitionCalls int
	WriteCalls      int
}

// NewStore constructs a Store with initialized maps.
func NewStore() *Store {
	return &Store{
		Weights:   make(map[string]float64),
		Coins:     make(map[string]int),
		UpdatedAt: make(map[string]time.Time),
		Unlocks:   make(map[string][]domain.AchievementUnlock),
		applied:   make(map[string]domain.LedgerEntry),
	}
}

// FailWrites makes the next len(errs) writes fail with errs in order.
func (s *Store) FailWrites(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// FailAfterWrites makes the next len(errs) writes apply and then fail with
// errs in order, as a commit whose acknowledgement was lost.
func (s *Store) FailAfterWrites(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lostAcks = append(s.lostAcks, errs...)
}

// SetCoins seeds a balance without writing a ledger entry.
func (s *Store) SetCoins(userID string, coins int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Coins[userID] = coins
}

func (s *Store) ApplyCredit(_ context.Context, credit domain.CreditRequest) (domain.CreditOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.nextFailure(); err != nil {
		return domain.CreditOutcome{}, err
	}
	return s.settleLocked(credit)
}

func (s *Store) PutFoodLog(_ context.Context, entry domain.FoodLogEntry, credit domain.CreditRequest) (domain.CreditOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.nextFailure(); err != nil {
		return domain.CreditOutcome{}, err
	}
	if !slices.ContainsFunc(s.Food, func(existing domain.FoodLogEntry) bool { return existing.ID == entry.ID }) {
		s.Food = append(s.Food, entry)
	}
	return s.settleLocked(credit)
}

func (s *Store) PutActivityLog(_ context.Context, entry domain.ActivityLogEntry, credit domain.CreditRequest) (domain.CreditOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.nextFailure(); err != nil {
		return domain.CreditOutcome{}, err
	}
	if !slices.ContainsFunc(s.Activities, func(existing domain.ActivityLogEntry) bool { return existing.ID == entry.ID }) {
		s.Activities = append(s.Activities, entry)
	}
	return s.settleLocked(credit)
}

func (s *Store) GetRewardState(_ context.Context, userID string) (domain.RewardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return domain.RewardState{}, s.ReadErr
	}
	coins, ok := s.Coins[userID]
	if !ok {
		return domain.RewardState{}, domain.ErrNotFound
	}
	return domain.RewardState{
		UserID:                   userID,
		TotalCoins:               coins,
		UnlockedAchievementCount: domain.UnlockedCount(coins),
		UpdatedAt:                s.UpdatedAt[userID],
	}, nil
}

func (s *Store) ListAchievementUnlocks(_ context.Context, userID string) ([]domain.AchievementUnlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return slices.Clone(s.Unlocks[userID]), nil
}

// ListLedgerEntries pages newest first; the token is the last returned Seq.
func (s *Store) ListLedgerEntries(_ context.Context, userID string, pageSize int, pageToken string) (domain.LedgerPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return domain.LedgerPage{}, s.ReadErr
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	before := int64(-1)
	if pageToken != "" {
		parsed, err := strconv.ParseInt(pageToken, 10, 64)
		if err != nil {
			return domain.LedgerPage{}, err
		}
		before = parsed
	}
	var page domain.LedgerPage
	for i := len(s.Ledger) - 1; i >= 0; i-- {
		entry := s.Ledger[i]
		if entry.UserID != userID || (before >= 0 && entry.Seq >= before) {
			continue
		}
		if len(page.Entries) == pageSize {
			page.NextPageToken = strconv.FormatInt(page.Entries[len(page.Entries)-1].Seq, 10)
			break
		}
		page.Entries = append(page.Entries, entry)
	}
	return page, nil
}

func (s *Store) ListLogsForDate(_ context.Context, userID string, date domain.Date) (domain.DayLogs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return domain.DayLogs{}, s.ReadErr
	}
	var logs domain.DayLogs
	for _, entry := range s.Food {
		if entry.UserID == userID && entry.LogDate == date {
			logs.Food = append(logs.Food, entry)
		}
	}
	for _, entry := range s.Activities {
		if entry.UserID == userID && entry.LogDate == date {
			logs.Activities = append(logs.Activities, entry)
		}
	}
	return logs, nil
}

func (s *Store) GetProfileWeight(_ context.Context, userID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	weight, ok := s.Weights[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return weight, nil
}

func (s *Store) PutProfileWeight(_ context.Context, userID string, weightKg float64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.nextFailure(); err != nil {
		return err
	}
	s.Weights[userID] = weightKg
	return nil
}

func (s *Store) ListActivityDefinitions(_ context.Context) ([]domain.ActivityDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DefinitionCalls++
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return slices.Clone(s.Definitions), nil
}

func (s *Store) nextFailure() error {
	s.WriteCalls++
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

func (s *Store) settleLocked(credit domain.CreditRequest) (domain.CreditOutcome, error) {
	outcome := s.applyLocked(credit)
	if len(s.lostAcks) > 0 {
		err := s.lostAcks[0]
		s.lostAcks = s.lostAcks[1:]
		return domain.CreditOutcome{}, err
	}
	return outcome, nil
}

func (s *Store) applyLocked(credit domain.CreditRequest) domain.CreditOutcome {
	key := credit.UserID + "\x00" + credit.SourceKind + "\x00" + credit.SourceID
	previous := s.Coins[credit.UserID]
	if entry, ok := s.applied[key]; ok {
		return domain.CreditOutcome{
			PreviousCoins:      previous,
			TotalCoins:         previous,
			EntryBalanceBefore: entry.BalanceAfter - entry.Amount,
			EntryBalanceAfter:  entry.BalanceAfter,
			Replayed:           true,
			UpdatedAt:          s.UpdatedAt[credit.UserID],
		}
	}

	total := previous + credit.Amount
	s.Coins[credit.UserID] = total
	s.UpdatedAt[credit.UserID] = credit.At
	entry := domain.LedgerEntry{
		Seq:          int64(len(s.Ledger) + 1),
		UserID:       credit.UserID,
		Amount:       credit.Amount,
		SourceKind:   credit.SourceKind,
		SourceID:     credit.SourceID,
		BalanceAfter: total,
		CreatedAt:    credit.At,
	}
	s.applied[key] = entry
	s.Ledger = append(s.Ledger, entry)

	var unlocked []int
	for _, threshold := range credit.Thresholds {
		if threshold > total {
			continue
		}
		if slices.ContainsFunc(s.Unlocks[credit.UserID], func(u domain.AchievementUnlock) bool { return u.Threshold == threshold }) {
			continue
		}
		s.Unlocks[credit.UserID] = append(s.Unlocks[credit.UserID], domain.AchievementUnlock{Threshold: threshold, UnlockedAt: credit.At})
		unlocked = append(unlocked, threshold)
	}
	return domain.CreditOutcome{
		PreviousCoins:      previous,
		TotalCoins:         total,
		EntryBalanceBefore: previous,
		EntryBalanceAfter:  total,
		Unlocked:           unlocked,
		UpdatedAt:          credit.At,
	}
}

// Publisher records every published update.
type Publisher struct {
	mu      sync.Mutex
	Updates []domain.RewardUpdate
}

func (p *Publisher) Publish(_ context.Context, update domain.RewardUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Updates = append(p.Updates, update)
}

// Snapshot returns a copy of the recorded updates.
func (p *Publisher) Snapshot() []domain.RewardUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.Updates)
}
