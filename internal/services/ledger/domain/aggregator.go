package domain

import (
	"context"
	"strings"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
	"golang.org/x/sync/errgroup"
)

// WeekLength is the number of days in a weekly summary.
const WeekLength = 7

// DailySummary is the energy balance of one user on one date.
type DailySummary struct {
	UserID      string
	LogDate     Date
	CaloriesIn  int
	CaloriesOut int
	NetCalories int
}

// WeeklySummary is the trailing seven days ending at Anchor, oldest first.
type WeeklySummary struct {
	UserID string
	Anchor Date
	Days   []DailySummary
}

// Aggregator projects log entries into summaries. It never writes.
type Aggregator struct {
	logs LogReader
}

// NewAggregator builds an aggregator over logs.
func NewAggregator(logs LogReader) *Aggregator {
	return &Aggregator{logs: logs}
}

// Summarize folds one day's entries into a summary. Entries for other users
// or dates are ignored.
func Summarize(userID string, date Date, logs DayLogs) DailySummary {
	summary := DailySummary{UserID: userID, LogDate: date}
	for _, entry := range logs.Food {
		if entry.UserID != userID || entry.LogDate != date {
			continue
		}
		summary.CaloriesIn += entry.CaloriesKcal
	}
	for _, entry := range logs.Activities {
		if entry.UserID != userID || entry.LogDate != date {
			continue
		}
		summary.CaloriesOut += entry.CaloriesBurned
	}
	summary.NetCalories = summary.CaloriesIn - summary.CaloriesOut
	return summary
}

// Daily returns the summary for userID on date.
func (a *Aggregator) Daily(ctx context.Context, userID string, date Date) (DailySummary, error) {
	if a == nil || a.logs == nil {
		return DailySummary{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return DailySummary{}, apperrors.New(apperrors.CodeUserIDRequired, "user id is required")
	}
	if date.IsZero() {
		return DailySummary{}, apperrors.WithMetadata(apperrors.CodeLogDateInvalid, "date is required", map[string]string{"Value": ""})
	}
	logs, err := a.logs.ListLogsForDate(ctx, userID, date)
	if err != nil {
		return DailySummary{}, storageError("list logs for date", err)
	}
	return Summarize(userID, date, logs), nil
}

// Weekly returns exactly seven daily summaries ending at anchor. Days with
// no entries are zero valued.
func (a *Aggregator) Weekly(ctx context.Context, userID string, anchor Date) (WeeklySummary, error) {
	if a == nil || a.logs == nil {
		return WeeklySummary{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return WeeklySummary{}, apperrors.New(apperrors.CodeUserIDRequired, "user id is required")
	}
	if anchor.IsZero() {
		return WeeklySummary{}, apperrors.WithMetadata(apperrors.CodeLogDateInvalid, "anchor date is required", map[string]string{"Value": ""})
	}

	days := make([]DailySummary, WeekLength)
	group, groupCtx := errgroup.WithContext(ctx)
	for i := range WeekLength {
		date := anchor.AddDays(i - (WeekLength - 1))
		group.Go(func() error {
			summary, err := a.Daily(groupCtx, userID, date)
			if err != nil {
				return err
			}
			days[i] = summary
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return WeeklySummary{}, err
	}
	return WeeklySummary{UserID: userID, Anchor: anchor, Days: days}, nil
}
