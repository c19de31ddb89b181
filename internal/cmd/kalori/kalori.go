// Package kalori parses ledger command flags and starts the service.
package kalori

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/kalori/internal/platform/cmd"
	"github.com/louisbranch/kalori/internal/services/ledger/app"
	"github.com/louisbranch/kalori/internal/services/ledger/domain"
)

// Config holds ledger command configuration.
type Config struct {
	HTTPAddr   string `env:"KALORI_HTTP_ADDR"   envDefault:":8095"`
	HealthPort int    `env:"KALORI_HEALTH_PORT" envDefault:"8096"`
	DBPath     string `env:"KALORI_DB_PATH"     envDefault:"data/kalori.db"`

	JWTSecret string `env:"KALORI_JWT_SECRET"`
	JWTIssuer string `env:"KALORI_JWT_ISSUER" envDefault:"kalori"`

	FoodLogCoins      int           `env:"KALORI_FOOD_LOG_COINS"      envDefault:"10"`
	ActivityLogCoins  int           `env:"KALORI_ACTIVITY_LOG_COINS"  envDefault:"15"`
	DefaultTimezone   string        `env:"KALORI_DEFAULT_TIMEZONE"    envDefault:"UTC"`
	ActivityCacheTTL  time.Duration `env:"KALORI_ACTIVITY_CACHE_TTL"  envDefault:"5m"`
	SubscriberBuffer  int           `env:"KALORI_SUBSCRIBER_BUFFER"   envDefault:"8"`
	CreditMaxAttempts int           `env:"KALORI_CREDIT_MAX_ATTEMPTS" envDefault:"4"`

	FoodDataBaseURL string `env:"KALORI_FOODDATA_BASE_URL" envDefault:"https://api.nal.usda.gov/fdc/v1"`
	FoodDataAPIKey  string `env:"KALORI_FOODDATA_API_KEY"`

	GeminiAPIKey  string `env:"KALORI_GEMINI_API_KEY"`
	GeminiModel   string `env:"KALORI_GEMINI_MODEL"    envDefault:"gemini-2.0-flash"`
	GeminiBaseURL string `env:"KALORI_GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`

	SNSTopicARN string `env:"KALORI_SNS_TOPIC_ARN"`
	AWSRegion   string `env:"KALORI_AWS_REGION" envDefault:"us-east-1"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP API listen address")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "gRPC health port (0 disables)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.DefaultTimezone, "default-timezone", cfg.DefaultTimezone, "IANA zone used when requests carry none")
	fs.DurationVar(&cfg.ActivityCacheTTL, "activity-cache-ttl", cfg.ActivityCacheTTL, "activity catalog cache TTL")
	fs.StringVar(&cfg.SNSTopicARN, "sns-topic-arn", cfg.SNSTopicARN, "SNS topic for unlock pushes (empty disables)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("KALORI_JWT_SECRET is required")
	}
	return cfg, nil
}

// Run starts the ledger service until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceKalori, func(ctx context.Context) error {
		if err := app.Run(ctx, appConfig(cfg)); err != nil {
			return fmt.Errorf("serve kalori: %w", err)
		}
		return nil
	})
}

func appConfig(cfg Config) app.Config {
	healthAddr := ""
	if cfg.HealthPort > 0 {
		healthAddr = fmt.Sprintf(":%d", cfg.HealthPort)
	}
	return app.Config{
		HTTPAddr:   cfg.HTTPAddr,
		HealthAddr: healthAddr,
		DBPath:     cfg.DBPath,
		JWTSecret:  cfg.JWTSecret,
		JWTIssuer:  cfg.JWTIssuer,
		Credits: domain.CreditPolicy{
			FoodLogCoins:     cfg.FoodLogCoins,
			ActivityLogCoins: cfg.ActivityLogCoins,
		},
		DefaultTimezone:   cfg.DefaultTimezone,
		ActivityCacheTTL:  cfg.ActivityCacheTTL,
		SubscriberBuffer:  cfg.SubscriberBuffer,
		CreditMaxAttempts: cfg.CreditMaxAttempts,
		FoodDataBaseURL:   cfg.FoodDataBaseURL,
		FoodDataAPIKey:    cfg.FoodDataAPIKey,
		GeminiAPIKey:      cfg.GeminiAPIKey,
		GeminiModel:       cfg.GeminiModel,
		GeminiBaseURL:     cfg.GeminiBaseURL,
		SNSTopicARN:       cfg.SNSTopicARN,
		AWSRegion:         cfg.AWSRegion,
	}
}
