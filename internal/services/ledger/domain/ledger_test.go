package domain_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
	"github.com/louisbranch/kalori/internal/services/ledger/domain"
	"github.com/louisbranch/kalori/internal/testkit/ledgerfakes"
)

var fastRetry = domain.LedgerConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func manualCredit(userID string, amount int, sourceID string) domain.CreditRequest {
	return domain.CreditRequest{
		UserID:     userID,
		Amount:     amount,
		SourceKind: domain.SourceManual,
		SourceID:   sourceID,
	}
}

func TestLedgerCreditReportsCrossedThresholdOnce(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	store.SetCoins("user-1", 90)
	publisher := &ledgerfakes.Publisher{}
	ledger := domain.NewLedger(store, publisher, fastRetry)

	first, err := ledger.Credit(context.Background(), manualCredit("user-1", 60, "c1"))
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if first.State.TotalCoins != 150 || first.State.UnlockedAchievementCount != 1 {
		t.Fatalf("state = %+v, want 150 coins and 1 unlock", first.State)
	}
	if !slices.Equal(first.NewlyUnlocked, []int{100}) {
		t.Fatalf("newly unlocked = %v, want [100]", first.NewlyUnlocked)
	}

	second, err := ledger.Credit(context.Background(), manualCredit("user-1", 60, "c2"))
	if err != nil {
		t.Fatalf("second credit: %v", err)
	}
	if second.State.TotalCoins != 210 {
		t.Fatalf("total = %d, want 210", second.State.TotalCoins)
	}
	if len(second.NewlyUnlocked) != 0 {
		t.Fatalf("expected no new unlocks, got %v", second.NewlyUnlocked)
	}

	updates := publisher.Snapshot()
	if len(updates) != 2 {
		t.Fatalf("published %d updates, want 2", len(updates))
	}
	if updates[1].State.TotalCoins != 210 || updates[1].State.UserID != "user-1" {
		t.Fatalf("last update = %+v", updates[1].State)
	}
}

func TestLedgerConcurrentCreditsDoNotLoseUpdates(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	store.SetCoins("user-1", 80)
	ledger := domain.NewLedger(store, nil, fastRetry)

	var wg sync.WaitGroup
	results := make([]domain.CreditResult, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = ledger.Credit(context.Background(), manualCredit("user-1", 60, "concurrent-"+string(rune('a'+i))))
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("credit: %v", err)
		}
	}

	state, err := ledger.Read(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if state.TotalCoins != 200 {
		t.Fatalf("total = %d, want 200", state.TotalCoins)
	}
	reported := append(slices.Clone(results[0].NewlyUnlocked), results[1].NewlyUnlocked...)
	if !slices.Equal(reported, []int{100}) {
		t.Fatalf("threshold reports = %v, want exactly [100]", reported)
	}
}

func TestLedgerCreditReplayIsNoop(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	publisher := &ledgerfakes.Publisher{}
	ledger := domain.NewLedger(store, publisher, fastRetry)

	if _, err := ledger.Credit(context.Background(), manualCredit("user-1", 120, "bonus")); err != nil {
		t.Fatalf("credit: %v", err)
	}
	replay, err := ledger.Credit(context.Background(), manualCredit("user-1", 120, "bonus"))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.Replayed {
		t.Fatal("expected replayed credit")
	}
	if replay.State.TotalCoins != 120 || len(replay.NewlyUnlocked) != 0 {
		t.Fatalf("replay result = %+v", replay)
	}
	if got := len(publisher.Snapshot()); got != 1 {
		t.Fatalf("published %d updates, want 1", got)
	}
}

func TestLedgerRetriesTransientStorage(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	store.FailWrites(domain.ErrTransientStorage, domain.ErrTransientStorage)
	ledger := domain.NewLedger(store, nil, fastRetry)

	result, err := ledger.Credit(context.Background(), manualCredit("user-1", 100, "retry"))
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if result.State.TotalCoins != 100 {
		t.Fatalf("total = %d, want 100", result.State.TotalCoins)
	}
	if store.WriteCalls != 3 {
		t.Fatalf("write calls = %d, want 3", store.WriteCalls)
	}
	if len(store.Ledger) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(store.Ledger))
	}
}

func TestLedgerRetryAfterLostCommitReportsCrossing(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	store.SetCoins("user-1", 90)
	store.FailAfterWrites(domain.ErrTransientStorage)
	publisher := &ledgerfakes.Publisher{}
	ledger := domain.NewLedger(store, publisher, fastRetry)

	result, err := ledger.Credit(context.Background(), manualCredit("user-1", 60, "lost-ack"))
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if result.Replayed {
		t.Fatal("expected the retried credit to be reported as applied")
	}
	if result.State.TotalCoins != 150 {
		t.Fatalf("total = %d, want 150", result.State.TotalCoins)
	}
	if !slices.Equal(result.NewlyUnlocked, []int{100}) {
		t.Fatalf("newly unlocked = %v, want [100]", result.NewlyUnlocked)
	}
	if len(store.Ledger) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(store.Ledger))
	}

	updates := publisher.Snapshot()
	if len(updates) != 1 {
		t.Fatalf("published %d updates, want 1", len(updates))
	}
	if updates[0].State.TotalCoins != 150 || !slices.Equal(updates[0].NewlyUnlocked, []int{100}) {
		t.Fatalf("update = %+v", updates[0])
	}

	replay, err := ledger.Credit(context.Background(), manualCredit("user-1", 60, "lost-ack"))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.Replayed || len(replay.NewlyUnlocked) != 0 {
		t.Fatalf("replay result = %+v", replay)
	}
	if got := len(publisher.Snapshot()); got != 1 {
		t.Fatalf("published %d updates after replay, want 1", got)
	}
}

func TestLedgerGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	store.FailWrites(domain.ErrTransientStorage, domain.ErrTransientStorage, domain.ErrTransientStorage)
	publisher := &ledgerfakes.Publisher{}
	ledger := domain.NewLedger(store, publisher, fastRetry)

	_, err := ledger.Credit(context.Background(), manualCredit("user-1", 10, "doomed"))
	if got := apperrors.GetCode(err); got != apperrors.CodeStorageUnavailable {
		t.Fatalf("code = %s, want %s (err=%v)", got, apperrors.CodeStorageUnavailable, err)
	}
	if !errors.Is(err, domain.ErrTransientStorage) {
		t.Fatalf("expected transient cause, got %v", err)
	}
	if store.WriteCalls != 3 {
		t.Fatalf("write calls = %d, want 3", store.WriteCalls)
	}
	if len(publisher.Snapshot()) != 0 {
		t.Fatal("failed credit must not publish")
	}
}

func TestLedgerDoesNotRetryPermanentErrors(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	store.FailWrites(errors.New("disk full"))
	ledger := domain.NewLedger(store, nil, fastRetry)

	_, err := ledger.Credit(context.Background(), manualCredit("user-1", 10, "once"))
	if err == nil {
		t.Fatal("expected error")
	}
	if store.WriteCalls != 1 {
		t.Fatalf("write calls = %d, want 1", store.WriteCalls)
	}
}

func TestLedgerCreditValidation(t *testing.T) {
	t.Parallel()

	ledger := domain.NewLedger(ledgerfakes.NewStore(), nil, fastRetry)
	tests := []struct {
		name    string
		request domain.CreditRequest
		want    apperrors.Code
	}{
		{name: "missing user", request: manualCredit(" ", 1, "x"), want: apperrors.CodeUserIDRequired},
		{name: "negative amount", request: manualCredit("user-1", -1, "x"), want: apperrors.CodeCreditAmountNegative},
		{name: "missing source id", request: manualCredit("user-1", 1, ""), want: apperrors.CodeCreditSourceInvalid},
		{
			name:    "unknown source kind",
			request: domain.CreditRequest{UserID: "user-1", Amount: 1, SourceKind: "gift", SourceID: "x"},
			want:    apperrors.CodeCreditSourceInvalid,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.Credit(context.Background(), tc.request)
			if got := apperrors.GetCode(err); got != tc.want {
				t.Fatalf("code = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestLedgerReadUnknownUserIsZero(t *testing.T) {
	t.Parallel()

	ledger := domain.NewLedger(ledgerfakes.NewStore(), nil, fastRetry)
	state, err := ledger.Read(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if state.UserID != "nobody" || state.TotalCoins != 0 || state.UnlockedAchievementCount != 0 {
		t.Fatalf("state = %+v", state)
	}
}

func TestLedgerAchievementsMarkUnlocked(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	ledger := domain.NewLedger(store, nil, fastRetry)
	if _, err := ledger.Credit(context.Background(), manualCredit("user-1", 600, "big")); err != nil {
		t.Fatalf("credit: %v", err)
	}

	achievements, err := ledger.Achievements(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("achievements: %v", err)
	}
	if len(achievements) != len(domain.AchievementThresholds) {
		t.Fatalf("achievements = %d, want %d", len(achievements), len(domain.AchievementThresholds))
	}
	for _, achievement := range achievements {
		wantUnlocked := achievement.Threshold <= 600
		if achievement.Unlocked != wantUnlocked {
			t.Fatalf("threshold %d unlocked = %v, want %v", achievement.Threshold, achievement.Unlocked, wantUnlocked)
		}
		if wantUnlocked && achievement.UnlockedAt.IsZero() {
			t.Fatalf("threshold %d missing unlock time", achievement.Threshold)
		}
	}
}

func TestLedgerHistoryNewestFirst(t *testing.T) {
	t.Parallel()

	store := ledgerfakes.NewStore()
	ledger := domain.NewLedger(store, nil, fastRetry)
	for i, source := range []string{"a", "b", "c"} {
		if _, err := ledger.Credit(context.Background(), manualCredit("user-1", (i+1)*10, source)); err != nil {
			t.Fatalf("credit %s: %v", source, err)
		}
	}

	page, err := ledger.History(context.Background(), "user-1", 2, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page.Entries) != 2 || page.Entries[0].SourceID != "c" || page.Entries[1].SourceID != "b" {
		t.Fatalf("first page = %+v", page.Entries)
	}
	if page.Entries[0].BalanceAfter != 60 {
		t.Fatalf("balance after = %d, want 60", page.Entries[0].BalanceAfter)
	}
	next, err := ledger.History(context.Background(), "user-1", 2, page.NextPageToken)
	if err != nil {
		t.Fatalf("history next: %v", err)
	}
	if len(next.Entries) != 1 || next.Entries[0].SourceID != "a" || next.NextPageToken != "" {
		t.Fatalf("second page = %+v", next)
	}
}

func TestLedgerWithoutStore(t *testing.T) {
	t.Parallel()

	var ledger *domain.Ledger
	if _, err := ledger.Read(context.Background(), "user-1"); !errors.Is(err, domain.ErrStoreNotConfigured) {
		t.Fatalf("expected ErrStoreNotConfigured, got %v", err)
	}
}
