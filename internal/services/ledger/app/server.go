// Package app composes the ledger service runtime: storage, domain,
// notifiers and transports.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/kalori/internal/platform/authn"
	platformgrpc "github.com/louisbranch/kalori/internal/platform/grpc"
	"github.com/louisbranch/kalori/internal/platform/timeouts"
	ledgerhttp "github.com/louisbranch/kalori/internal/services/ledger/api/http/ledger"
	"github.com/louisbranch/kalori/internal/services/ledger/catalog"
	"github.com/louisbranch/kalori/internal/services/ledger/coach"
	"github.com/louisbranch/kalori/internal/services/ledger/domain"
	"github.com/louisbranch/kalori/internal/services/ledger/notify"
	"github.com/louisbranch/kalori/internal/services/ledger/nutrition"
	"github.com/louisbranch/kalori/internal/services/ledger/push"
	"github.com/louisbranch/kalori/internal/services/ledger/storage/sqlite"
)

// HealthService is the gRPC health service name reported by the server.
const HealthService = "kalori.ledger"

// Config configures the ledger runtime.
type Config struct {
	HTTPAddr   string
	HealthAddr string
	DBPath     string

	JWTSecret string
	JWTIssuer string

	Credits           domain.CreditPolicy
	DefaultTimezone   string
	ActivityCacheTTL  time.Duration
	SubscriberBuffer  int
	CreditMaxAttempts int

	FoodDataBaseURL string
	FoodDataAPIKey  string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	SNSTopicARN string
	AWSRegion   string

	ShutdownTimeout time.Duration
}

// Server owns every long-lived resource of the ledger service.
type Server struct {
	httpAddr        string
	healthAddr      string
	shutdownTimeout time.Duration

	store      *sqlite.Store
	hub        *notify.Hub
	notifier   *push.Notifier
	service    *domain.Service
	handler    http.Handler
	httpServer *http.Server

	closeOnce sync.Once
}

// NewServer opens storage, seeds the activity catalog and builds the HTTP
// handler.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	location, err := time.LoadLocation(strings.TrimSpace(cfg.DefaultTimezone))
	if err != nil {
		return nil, fmt.Errorf("load default timezone %q: %w", cfg.DefaultTimezone, err)
	}
	verifier, err := authn.NewVerifier(authn.Config{Issuer: cfg.JWTIssuer, Key: []byte(cfg.JWTSecret)})
	if err != nil {
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := seedActivities(ctx, store); err != nil {
		_ = store.Close()
		return nil, err
	}

	hub := notify.NewHub(cfg.SubscriberBuffer)
	publishers := domain.Publishers{hub}
	var notifier *push.Notifier
	if strings.TrimSpace(cfg.SNSTopicARN) != "" {
		notifier, err = push.New(ctx, push.Config{TopicARN: cfg.SNSTopicARN, Region: cfg.AWSRegion})
		if err != nil {
			hub.Close()
			_ = store.Close()
			return nil, fmt.Errorf("init push notifier: %w", err)
		}
		publishers = append(publishers, notifier)
	}

	service := domain.NewService(newDomainStoreAdapter(store), publishers, domain.ServiceConfig{
		Credits:          cfg.Credits,
		Ledger:           domain.LedgerConfig{MaxAttempts: cfg.CreditMaxAttempts},
		ActivityCacheTTL: cfg.ActivityCacheTTL,
	})
	foods := nutrition.NewClient(nutrition.Config{
		BaseURL: cfg.FoodDataBaseURL,
		APIKey:  cfg.FoodDataAPIKey,
		Timeout: timeouts.ExternalLookup,
	}, nil)

	var motivator coach.Generator
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		motivator = coach.NewClient(coach.Config{
			BaseURL: cfg.GeminiBaseURL,
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: timeouts.ExternalLookup,
		}, nil)
	}

	handler, err := ledgerhttp.NewHandler(ledgerhttp.Config{
		Service:         service,
		Foods:           foods,
		Coach:           motivator,
		Streams:         hub,
		Verifier:        verifier,
		DefaultLocation: location,
	})
	if err != nil {
		hub.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init http handler: %w", err)
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = timeouts.Shutdown
	}
	return &Server{
		httpAddr:        cfg.HTTPAddr,
		healthAddr:      cfg.HealthAddr,
		shutdownTimeout: shutdownTimeout,
		store:           store,
		hub:             hub,
		notifier:        notifier,
		service:         service,
		handler:         handler,
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// Run builds the server and serves until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init ledger server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve ledger: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return s.handler
}

// Service returns the ledger domain service.
func (s *Server) Service() *domain.Service {
	if s == nil {
		return nil
	}
	return s.service
}

// ListenAndServe runs the HTTP server, the health endpoint and the push
// worker until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("ledger server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	var health *platformgrpc.HealthServer
	if strings.TrimSpace(s.healthAddr) != "" {
		var err error
		health, err = platformgrpc.ListenHealth(s.healthAddr, HealthService)
		if err != nil {
			return err
		}
		defer health.Stop()
	}

	pushDone := make(chan struct{})
	if s.notifier != nil {
		go func() {
			defer close(pushDone)
			if err := s.notifier.Run(context.WithoutCancel(ctx)); err != nil {
				log.Printf("push notifier: %v", err)
			}
		}()
	} else {
		close(pushDone)
	}
	defer func() {
		s.notifier.Close()
		<-pushDone
	}()

	serveErr := make(chan error, 1)
	log.Printf("ledger server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()
	if health != nil {
		health.SetServing("", true)
		health.SetServing(HealthService, true)
	}

	select {
	case <-ctx.Done():
		if health != nil {
			health.SetServing(HealthService, false)
		}
		// Streams are hijacked connections; closing the hub ends them.
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.hub.Close()
		if err := s.store.Close(); err != nil {
			log.Printf("close ledger sqlite store: %v", err)
		}
	})
}

func openStore(ctx context.Context, path string) (*sqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	return store, nil
}

func seedActivities(ctx context.Context, store *sqlite.Store) error {
	definitions, err := catalog.Activities()
	if err != nil {
		return fmt.Errorf("load activity catalog: %w", err)
	}
	if err := store.PutActivityDefinitions(ctx, toStorageDefinitions(definitions)); err != nil {
		return fmt.Errorf("seed activity catalog: %w", err)
	}
	return nil
}
