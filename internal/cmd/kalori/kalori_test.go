package kalori

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("KALORI_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("KALORI_GEMINI_API_KEY", "")

	fs := flag.NewFlagSet("kalori", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8095" || cfg.HealthPort != 8096 {
		t.Fatalf("addrs = %q %d", cfg.HTTPAddr, cfg.HealthPort)
	}
	if cfg.FoodLogCoins != 10 || cfg.ActivityLogCoins != 15 {
		t.Fatalf("credits = %d/%d", cfg.FoodLogCoins, cfg.ActivityLogCoins)
	}
	if cfg.ActivityCacheTTL != 5*time.Minute || cfg.CreditMaxAttempts != 4 {
		t.Fatalf("ttl=%s attempts=%d", cfg.ActivityCacheTTL, cfg.CreditMaxAttempts)
	}
	if cfg.DefaultTimezone != "UTC" || cfg.AWSRegion != "us-east-1" {
		t.Fatalf("tz=%q region=%q", cfg.DefaultTimezone, cfg.AWSRegion)
	}
	if cfg.GeminiAPIKey != "" || cfg.GeminiModel != "gemini-2.0-flash" {
		t.Fatalf("gemini key=%q model=%q", cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("KALORI_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("KALORI_HTTP_ADDR", "env-addr")
	t.Setenv("KALORI_FOOD_LOG_COINS", "20")
	t.Setenv("KALORI_GEMINI_API_KEY", "gemini-key")

	fs := flag.NewFlagSet("kalori", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "flag-addr", "-health-port", "0", "-default-timezone", "Asia/Jakarta"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-addr" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.FoodLogCoins != 20 {
		t.Fatalf("food coins = %d", cfg.FoodLogCoins)
	}
	appCfg := appConfig(cfg)
	if appCfg.HealthAddr != "" || appCfg.DefaultTimezone != "Asia/Jakarta" || appCfg.Credits.FoodLogCoins != 20 {
		t.Fatalf("app config = %+v", appCfg)
	}
	if appCfg.GeminiAPIKey != "gemini-key" || appCfg.GeminiModel != "gemini-2.0-flash" {
		t.Fatalf("gemini app config = %q %q", appCfg.GeminiAPIKey, appCfg.GeminiModel)
	}
}

func TestParseConfigRequiresSecret(t *testing.T) {
	t.Setenv("KALORI_JWT_SECRET", "")

	fs := flag.NewFlagSet("kalori", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected missing secret error")
	}
}

func TestAppConfigHealthAddr(t *testing.T) {
	t.Parallel()

	if got := appConfig(Config{HealthPort: 8096}).HealthAddr; got != ":8096" {
		t.Fatalf("health addr = %q", got)
	}
}
