package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/kalori/internal/platform/storage/cursor"
	sqlitemigrate "github.com/louisbranch/kalori/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/kalori/internal/services/ledger/storage"
	"github.com/louisbranch/kalori/internal/services/ledger/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	defaultLedgerPageSize = 50
	maxLedgerPageSize     = 200
)

// Store provides SQLite-backed persistence for logs and reward state.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a ledger SQLite store at the provided path and applies
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

func ensureForeignKeysEnabled(ctx context.Context, db *sql.DB) error {
	var enabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// PutActivityDefinitions upserts MET reference rows.
func (s *Store) PutActivityDefinitions(ctx context.Context, records []storage.ActivityDefinitionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized := make([]storage.ActivityDefinitionRecord, 0, len(records))
	for _, record := range records {
		record.ID = strings.TrimSpace(record.ID)
		record.Name = strings.TrimSpace(record.Name)
		if record.ID == "" {
			return fmt.Errorf("activity id is required")
		}
		if record.Name == "" {
			return fmt.Errorf("activity %s name is required", record.ID)
		}
		if record.METValue <= 0 {
			return fmt.Errorf("activity %s met value must be positive", record.ID)
		}
		normalized = append(normalized, record)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin activity definitions write", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback activity definitions write: %v", cause, rollbackErr)
		}
		return cause
	}
	for _, record := range normalized {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO activity_definitions (id, name, met_value)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    met_value = excluded.met_value
`, record.ID, record.Name, record.METValue); err != nil {
			return rollbackWith(classify("put activity definition", err))
		}
	}
	if err := tx.Commit(); err != nil {
		return classify("commit activity definitions write", err)
	}
	return nil
}

// ListActivityDefinitions lists MET reference rows ordered by name.
func (s *Store) ListActivityDefinitions(ctx context.Context) ([]storage.ActivityDefinitionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, met_value
FROM activity_definitions
ORDER BY name ASC, id ASC
`)
	if err != nil {
		return nil, classify("list activity definitions", err)
	}
	defer rows.Close()

	var records []storage.ActivityDefinitionRecord
	for rows.Next() {
		var record storage.ActivityDefinitionRecord
		if err := rows.Scan(&record.ID, &record.Name, &record.METValue); err != nil {
			return nil, fmt.Errorf("scan activity definition: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list activity definitions", err)
	}
	return records, nil
}

// GetProfileWeight returns the stored weight or storage.ErrNotFound.
func (s *Store) GetProfileWeight(ctx context.Context, userID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, fmt.Errorf("user id is required")
	}

	var weightKg float64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT weight_kg FROM profiles WHERE user_id = ?`, userID).Scan(&weightKg)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, classify("get profile weight", err)
	}
	return weightKg, nil
}

// PutProfileWeight upserts one profile weight.
func (s *Store) PutProfileWeight(ctx context.Context, userID string, weightKg float64, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if weightKg <= 0 {
		return fmt.Errorf("weight must be positive")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO profiles (user_id, weight_kg, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    weight_kg = excluded.weight_kg,
    updated_at = excluded.updated_at
`, userID, weightKg, toMillis(updatedAt)); err != nil {
		return classify("put profile weight", err)
	}
	return nil
}

// PutFoodLog persists one food log and its credit in one transaction.
// Re-sending an already stored entry is a replay.
func (s *Store) PutFoodLog(ctx context.Context, record storage.FoodLogRecord, credit storage.CreditRecord) (storage.CreditResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.CreditResult{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CreditResult{}, fmt.Errorf("storage is not configured")
	}
	record, err := normalizeFoodLogRecord(record)
	if err != nil {
		return storage.CreditResult{}, err
	}
	credit, err = normalizeCreditRecord(credit)
	if err != nil {
		return storage.CreditResult{}, err
	}
	if credit.UserID != record.UserID {
		return storage.CreditResult{}, fmt.Errorf("credit user does not match food log user")
	}

	return s.withCreditTx(ctx, "food log", credit, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO food_logs (id, user_id, food_name, calories_kcal, serving_qty, serving_unit, log_date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`, record.ID, record.UserID, record.FoodName, record.CaloriesKcal, record.ServingQty, record.ServingUnit, record.LogDate, toMillis(record.CreatedAt))
		return err
	})
}

// PutActivityLog persists one activity log and its credit in one transaction.
func (s *Store) PutActivityLog(ctx context.Context, record storage.ActivityLogRecord, credit storage.CreditRecord) (storage.CreditResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.CreditResult{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CreditResult{}, fmt.Errorf("storage is not configured")
	}
	record, err := normalizeActivityLogRecord(record)
	if err != nil {
		return storage.CreditResult{}, err
	}
	credit, err = normalizeCreditRecord(credit)
	if err != nil {
		return storage.CreditResult{}, err
	}
	if credit.UserID != record.UserID {
		return storage.CreditResult{}, fmt.Errorf("credit user does not match activity log user")
	}

	return s.withCreditTx(ctx, "activity log", credit, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO activity_logs (id, user_id, activity_id, duration_minutes, calories_burned, log_date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`, record.ID, record.UserID, record.ActivityID, record.DurationMinutes, record.CaloriesBurned, record.LogDate, toMillis(record.CreatedAt))
		if isForeignKeyError(err) {
			return fmt.Errorf("activity %s: %w", record.ActivityID, storage.ErrNotFound)
		}
		return err
	})
}

// ApplyCredit applies one standalone credit.
func (s *Store) ApplyCredit(ctx context.Context, credit storage.CreditRecord) (storage.CreditResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.CreditResult{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CreditResult{}, fmt.Errorf("storage is not configured")
	}
	credit, err := normalizeCreditRecord(credit)
	if err != nil {
		return storage.CreditResult{}, err
	}
	return s.withCreditTx(ctx, "credit", credit, nil)
}

// withCreditTx runs before and then the credit inside one immediate
// transaction. A replayed credit rolls everything back.
func (s *Store) withCreditTx(ctx context.Context, label string, credit storage.CreditRecord, before func(*sql.Tx) error) (storage.CreditResult, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.CreditResult{}, classify("begin "+label+" write", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback %s write: %v", cause, label, rollbackErr)
		}
		return cause
	}

	if before != nil {
		if err := before(tx); err != nil {
			return storage.CreditResult{}, rollbackWith(classify("put "+label, err))
		}
	}
	result, err := applyCreditTx(ctx, tx, credit)
	if err != nil {
		return storage.CreditResult{}, rollbackWith(classify("apply "+label+" credit", err))
	}
	if result.Replayed {
		if err := tx.Rollback(); err != nil {
			return storage.CreditResult{}, fmt.Errorf("rollback replayed %s: %w", label, err)
		}
		return result, nil
	}
	if err := tx.Commit(); err != nil {
		return storage.CreditResult{}, classify("commit "+label+" write", err)
	}
	return result, nil
}

func applyCreditTx(ctx context.Context, tx *sql.Tx, credit storage.CreditRecord) (storage.CreditResult, error) {
	createdAt := toMillis(credit.CreatedAt)
	if _, err := tx.ExecContext(ctx, `
INSERT INTO reward_states (user_id, total_coins, unlocked_achievement_count, updated_at)
VALUES (?, 0, 0, ?)
ON CONFLICT(user_id) DO NOTHING
`, credit.UserID, createdAt); err != nil {
		return storage.CreditResult{}, fmt.Errorf("ensure reward state: %w", err)
	}

	inserted, err := tx.ExecContext(ctx, `
INSERT INTO coin_ledger (user_id, amount, source_kind, source_id, balance_after, created_at)
VALUES (?, ?, ?, ?, 0, ?)
ON CONFLICT(user_id, source_kind, source_id) DO NOTHING
`, credit.UserID, credit.Amount, credit.SourceKind, credit.SourceID, createdAt)
	if err != nil {
		return storage.CreditResult{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	affected, err := inserted.RowsAffected()
	if err != nil {
		return storage.CreditResult{}, fmt.Errorf("insert ledger entry rows affected: %w", err)
	}
	if affected == 0 {
		state, err := scanRewardState(tx.QueryRowContext(ctx, `
SELECT user_id, total_coins, unlocked_achievement_count, updated_at
FROM reward_states
WHERE user_id = ?
`, credit.UserID).Scan)
		if err != nil {
			return storage.CreditResult{}, fmt.Errorf("read replayed reward state: %w", err)
		}
		var amount, balanceAfter int
		if err := tx.QueryRowContext(ctx, `
SELECT amount, balance_after
FROM coin_ledger
WHERE user_id = ? AND source_kind = ? AND source_id = ?
`, credit.UserID, credit.SourceKind, credit.SourceID).Scan(&amount, &balanceAfter); err != nil {
			return storage.CreditResult{}, fmt.Errorf("read replayed ledger entry: %w", err)
		}
		return storage.CreditResult{
			PreviousCoins:      state.TotalCoins,
			TotalCoins:         state.TotalCoins,
			EntryBalanceBefore: balanceAfter - amount,
			EntryBalanceAfter:  balanceAfter,
			Replayed:           true,
			UpdatedAt:          state.UpdatedAt,
		}, nil
	}
	seq, err := inserted.LastInsertId()
	if err != nil {
		return storage.CreditResult{}, fmt.Errorf("ledger entry seq: %w", err)
	}

	var total int
	if err := tx.QueryRowContext(ctx, `
UPDATE reward_states
SET total_coins = total_coins + ?, updated_at = ?
WHERE user_id = ?
RETURNING total_coins
`, credit.Amount, createdAt, credit.UserID).Scan(&total); err != nil {
		return storage.CreditResult{}, fmt.Errorf("update reward state: %w", err)
	}

	var unlocked []int
	reached := 0
	for _, threshold := range credit.Thresholds {
		if threshold > total {
			continue
		}
		reached++
		result, err := tx.ExecContext(ctx, `
INSERT INTO achievement_unlocks (user_id, threshold, unlocked_at)
VALUES (?, ?, ?)
ON CONFLICT(user_id, threshold) DO NOTHING
`, credit.UserID, threshold, createdAt)
		if err != nil {
			return storage.CreditResult{}, fmt.Errorf("insert achievement unlock: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return storage.CreditResult{}, fmt.Errorf("insert achievement unlock rows affected: %w", err)
		} else if n > 0 {
			unlocked = append(unlocked, threshold)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE reward_states SET unlocked_achievement_count = ? WHERE user_id = ?`, reached, credit.UserID); err != nil {
		return storage.CreditResult{}, fmt.Errorf("update unlocked count: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE coin_ledger SET balance_after = ? WHERE seq = ?`, total, seq); err != nil {
		return storage.CreditResult{}, fmt.Errorf("update ledger balance: %w", err)
	}

	return storage.CreditResult{
		PreviousCoins:      total - credit.Amount,
		TotalCoins:         total,
		EntryBalanceBefore: total - credit.Amount,
		EntryBalanceAfter:  total,
		Unlocked:           unlocked,
		UpdatedAt:          fromMillis(createdAt),
	}, nil
}

// ListFoodLogs lists one user's food logs for a date, oldest first.
func (s *Store) ListFoodLogs(ctx context.Context, userID string, logDate string) ([]storage.FoodLogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, user_id, food_name, calories_kcal, serving_qty, serving_unit, log_date, created_at
FROM food_logs
WHERE user_id = ? AND log_date = ?
ORDER BY created_at ASC, id ASC
`, userID, strings.TrimSpace(logDate))
	if err != nil {
		return nil, classify("list food logs", err)
	}
	defer rows.Close()

	var records []storage.FoodLogRecord
	for rows.Next() {
		record, err := scanFoodLog(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan food log: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list food logs", err)
	}
	return records, nil
}

// ListActivityLogs lists one user's activity logs for a date, oldest first.
func (s *Store) ListActivityLogs(ctx context.Context, userID string, logDate string) ([]storage.ActivityLogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, user_id, activity_id, duration_minutes, calories_burned, log_date, created_at
FROM activity_logs
WHERE user_id = ? AND log_date = ?
ORDER BY created_at ASC, id ASC
`, userID, strings.TrimSpace(logDate))
	if err != nil {
		return nil, classify("list activity logs", err)
	}
	defer rows.Close()

	var records []storage.ActivityLogRecord
	for rows.Next() {
		record, err := scanActivityLog(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list activity logs", err)
	}
	return records, nil
}

// GetRewardState loads one user's balance row or storage.ErrNotFound.
func (s *Store) GetRewardState(ctx context.Context, userID string) (storage.RewardStateRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.RewardStateRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RewardStateRecord{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.RewardStateRecord{}, fmt.Errorf("user id is required")
	}
	record, err := scanRewardState(s.sqlDB.QueryRowContext(ctx, `
SELECT user_id, total_coins, unlocked_achievement_count, updated_at
FROM reward_states
WHERE user_id = ?
`, userID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.RewardStateRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.RewardStateRecord{}, classify("get reward state", err)
	}
	return record, nil
}

// ListAchievementUnlocks lists one user's unlock rows by threshold.
func (s *Store) ListAchievementUnlocks(ctx context.Context, userID string) ([]storage.AchievementUnlockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT user_id, threshold, unlocked_at
FROM achievement_unlocks
WHERE user_id = ?
ORDER BY threshold ASC
`, userID)
	if err != nil {
		return nil, classify("list achievement unlocks", err)
	}
	defer rows.Close()

	var records []storage.AchievementUnlockRecord
	for rows.Next() {
		var record storage.AchievementUnlockRecord
		var unlockedAt int64
		if err := rows.Scan(&record.UserID, &record.Threshold, &unlockedAt); err != nil {
			return nil, fmt.Errorf("scan achievement unlock: %w", err)
		}
		record.UnlockedAt = fromMillis(unlockedAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list achievement unlocks", err)
	}
	return records, nil
}

// ListLedgerEntries lists one user's ledger newest first with cursor
// pagination.
func (s *Store) ListLedgerEntries(ctx context.Context, userID string, pageSize int, pageToken string) (storage.LedgerPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.LedgerPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.LedgerPage{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	pageToken = strings.TrimSpace(pageToken)
	if userID == "" {
		return storage.LedgerPage{}, fmt.Errorf("user id is required")
	}
	if pageSize <= 0 {
		pageSize = defaultLedgerPageSize
	}
	if pageSize > maxLedgerPageSize {
		pageSize = maxLedgerPageSize
	}
	scope := ledgerScope(userID)

	beforeSeq := int64(-1)
	if pageToken != "" {
		c, err := cursor.Decode(pageToken, scope)
		if err != nil || c.Dir != cursor.DirectionBackward {
			return storage.LedgerPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidPageToken, err)
		}
		beforeSeq = c.Seq
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT seq, user_id, amount, source_kind, source_id, balance_after, created_at
FROM coin_ledger
WHERE user_id = ?
  AND (? < 0 OR seq < ?)
ORDER BY seq DESC
LIMIT ?
`, userID, beforeSeq, beforeSeq, pageSize+1)
	if err != nil {
		return storage.LedgerPage{}, classify("list ledger entries", err)
	}
	defer rows.Close()

	page := storage.LedgerPage{Entries: make([]storage.LedgerEntryRecord, 0, pageSize)}
	for rows.Next() {
		var record storage.LedgerEntryRecord
		var createdAt int64
		if err := rows.Scan(&record.Seq, &record.UserID, &record.Amount, &record.SourceKind, &record.SourceID, &record.BalanceAfter, &createdAt); err != nil {
			return storage.LedgerPage{}, fmt.Errorf("scan ledger entry: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		page.Entries = append(page.Entries, record)
	}
	if err := rows.Err(); err != nil {
		return storage.LedgerPage{}, classify("list ledger entries", err)
	}
	if len(page.Entries) > pageSize {
		page.Entries = page.Entries[:pageSize]
		token, err := cursor.Encode(cursor.NewNextPageCursor(page.Entries[pageSize-1].Seq, true, scope))
		if err != nil {
			return storage.LedgerPage{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

func ledgerScope(userID string) string {
	return "coin_ledger:" + userID
}

type scanner func(dest ...any) error

func scanRewardState(scan scanner) (storage.RewardStateRecord, error) {
	var record storage.RewardStateRecord
	var updatedAt int64
	if err := scan(&record.UserID, &record.TotalCoins, &record.UnlockedAchievementCount, &updatedAt); err != nil {
		return storage.RewardStateRecord{}, err
	}
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanFoodLog(scan scanner) (storage.FoodLogRecord, error) {
	var record storage.FoodLogRecord
	var createdAt int64
	if err := scan(&record.ID, &record.UserID, &record.FoodName, &record.CaloriesKcal, &record.ServingQty, &record.ServingUnit, &record.LogDate, &createdAt); err != nil {
		return storage.FoodLogRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

func scanActivityLog(scan scanner) (storage.ActivityLogRecord, error) {
	var record storage.ActivityLogRecord
	var createdAt int64
	if err := scan(&record.ID, &record.UserID, &record.ActivityID, &record.DurationMinutes, &record.CaloriesBurned, &record.LogDate, &createdAt); err != nil {
		return storage.ActivityLogRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

func normalizeFoodLogRecord(record storage.FoodLogRecord) (storage.FoodLogRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.FoodName = strings.TrimSpace(record.FoodName)
	record.ServingUnit = strings.TrimSpace(record.ServingUnit)
	record.LogDate = strings.TrimSpace(record.LogDate)
	if record.ID == "" {
		return storage.FoodLogRecord{}, fmt.Errorf("food log id is required")
	}
	if record.UserID == "" {
		return storage.FoodLogRecord{}, fmt.Errorf("user id is required")
	}
	if record.LogDate == "" {
		return storage.FoodLogRecord{}, fmt.Errorf("log date is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.FoodLogRecord{}, fmt.Errorf("created_at is required")
	}
	return record, nil
}

func normalizeActivityLogRecord(record storage.ActivityLogRecord) (storage.ActivityLogRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.ActivityID = strings.TrimSpace(record.ActivityID)
	record.LogDate = strings.TrimSpace(record.LogDate)
	if record.ID == "" {
		return storage.ActivityLogRecord{}, fmt.Errorf("activity log id is required")
	}
	if record.UserID == "" {
		return storage.ActivityLogRecord{}, fmt.Errorf("user id is required")
	}
	if record.ActivityID == "" {
		return storage.ActivityLogRecord{}, fmt.Errorf("activity id is required")
	}
	if record.LogDate == "" {
		return storage.ActivityLogRecord{}, fmt.Errorf("log date is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.ActivityLogRecord{}, fmt.Errorf("created_at is required")
	}
	return record, nil
}

func normalizeCreditRecord(record storage.CreditRecord) (storage.CreditRecord, error) {
	record.UserID = strings.TrimSpace(record.UserID)
	record.SourceKind = strings.TrimSpace(record.SourceKind)
	record.SourceID = strings.TrimSpace(record.SourceID)
	if record.UserID == "" {
		return storage.CreditRecord{}, fmt.Errorf("user id is required")
	}
	if record.Amount < 0 {
		return storage.CreditRecord{}, fmt.Errorf("credit amount must be non-negative")
	}
	if record.SourceKind == "" || record.SourceID == "" {
		return storage.CreditRecord{}, fmt.Errorf("credit source is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.CreditRecord{}, fmt.Errorf("created_at is required")
	}
	return record, nil
}

// classify maps driver lock contention to storage.ErrBusy.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isSQLiteBusyError(err) {
		return fmt.Errorf("%s: %w: %v", operation, storage.ErrBusy, err)
	}
	if isConstraintError(err) {
		return fmt.Errorf("%s: %w: %v", operation, storage.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

var (
	_ storage.LogStore                = (*Store)(nil)
	_ storage.RewardStore             = (*Store)(nil)
	_ storage.ProfileStore            = (*Store)(nil)
	_ storage.ActivityDefinitionStore = (*Store)(nil)
)
