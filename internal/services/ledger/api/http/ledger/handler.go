// Package ledger serves the kalori REST API and reward stream.
package ledger

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/louisbranch/kalori/internal/platform/authn"
	"github.com/louisbranch/kalori/internal/platform/httpx"
	"github.com/louisbranch/kalori/internal/platform/timeouts"
	"github.com/louisbranch/kalori/internal/services/ledger/coach"
	"github.com/louisbranch/kalori/internal/services/ledger/domain"
	"github.com/louisbranch/kalori/internal/services/ledger/notify"
	"github.com/louisbranch/kalori/internal/services/ledger/nutrition"
)

// Service is the ledger surface the handlers call.
type Service interface {
	LogFood(ctx context.Context, input domain.FoodLogInput) (domain.FoodLogResult, error)
	LogActivity(ctx context.Context, input domain.ActivityLogInput) (domain.ActivityLogResult, error)
	DailyLog(ctx context.Context, userID string, date domain.Date) (domain.DayLogs, error)
	SetWeight(ctx context.Context, userID string, weightKg float64) error
	Rewards(ctx context.Context, userID string) (domain.RewardState, error)
	Achievements(ctx context.Context, userID string) ([]domain.Achievement, error)
	History(ctx context.Context, userID string, pageSize int, pageToken string) (domain.LedgerPage, error)
	Daily(ctx context.Context, userID string, date domain.Date) (domain.DailySummary, error)
	Weekly(ctx context.Context, userID string, anchor domain.Date) (domain.WeeklySummary, error)
	Activities(ctx context.Context) ([]domain.ActivityDefinition, error)
}

// Subscriber opens reward subscriptions for the stream endpoint.
type Subscriber interface {
	Subscribe(userID string) (*notify.Subscription, error)
}

// Config wires the HTTP handler. Foods and Coach are optional; without a
// coach, daily summaries keep the rule-based motivation.
type Config struct {
	Service  Service
	Foods    nutrition.Searcher
	Coach    coach.Generator
	Streams  Subscriber
	Verifier *authn.Verifier
	// DefaultLocation resolves "today" when a request has no X-Timezone.
	DefaultLocation *time.Location
	PingInterval    time.Duration
	Clock           func() time.Time
}

type handlers struct {
	service      Service
	foods        nutrition.Searcher
	coach        coach.Generator
	streams      Subscriber
	location     *time.Location
	pingInterval time.Duration
	clock        func() time.Time
}

// NewHandler builds the HTTP handler. Every route except the liveness check
// requires a session token.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Service == nil {
		return nil, errors.New("ledger service is required")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = timeouts.StreamPing
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	h := handlers{
		service:      cfg.Service,
		foods:        cfg.Foods,
		coach:        cfg.Coach,
		streams:      cfg.Streams,
		location:     cfg.DefaultLocation,
		pingInterval: cfg.PingInterval,
		clock:        cfg.Clock,
	}

	api := http.NewServeMux()
	registerRoutes(api, h)

	root := http.NewServeMux()
	root.HandleFunc(http.MethodGet+" "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	root.Handle("/", httpx.Chain(api, authn.RequireUser(cfg.Verifier)))

	return httpx.Chain(root, httpx.RequestID(), httpx.RecoverPanic(), httpx.AccessLog()), nil
}
