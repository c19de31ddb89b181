// Package nutrition searches USDA FoodData Central for food energy values.
package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
)

const (
	// DefaultBaseURL is the public FoodData Central API root.
	DefaultBaseURL = "https://api.nal.usda.gov/fdc/v1"
	// DemoAPIKey is the rate-limited key FoodData Central accepts without signup.
	DemoAPIKey = "DEMO_KEY"

	defaultPageSize  = 10
	maxQueryLength   = 200 // runes
	maxResponseBytes = 4 << 20
	perServingUnit   = "100 g"
)

// Food is one untrusted lookup result. Missing energy reports zero calories.
type Food struct {
	FDCID        int64
	Name         string
	CaloriesKcal int
	Unit         string
}

// Searcher looks up foods by free text.
type Searcher interface {
	SearchFood(ctx context.Context, query string) ([]Food, error)
}

// Config configures the FoodData Central client.
type Config struct {
	BaseURL  string
	APIKey   string
	PageSize int
	Timeout  time.Duration
}

// Client calls the FoodData Central search endpoint.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	client   *http.Client
}

// NewClient creates a client. A nil httpClient uses one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = DemoAPIKey
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		pageSize: pageSize,
		client:   httpClient,
	}
}

type searchResponse struct {
	Foods []searchFood `json:"foods"`
}

type searchFood struct {
	FDCID         int64          `json:"fdcId"`
	Description   string         `json:"description"`
	FoodNutrients []foodNutrient `json:"foodNutrients"`
}

type foodNutrient struct {
	NutrientName   string  `json:"nutrientName"`
	NutrientNumber string  `json:"nutrientNumber"`
	UnitName       string  `json:"unitName"`
	Value          float64 `json:"value"`
}

// SearchFood returns foods matching query. Lookup failures are not retried.
func (c *Client) SearchFood(ctx context.Context, query string) ([]Food, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.CodeNutritionQueryEmpty, "food search query is required")
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		query = string([]rune(query)[:maxQueryLength])
	}

	values := url.Values{}
	values.Set("query", query)
	values.Set("pageSize", fmt.Sprint(c.pageSize))
	values.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/foods/search?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build food search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNutritionLookupFailed, "food search request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, apperrors.Wrap(apperrors.CodeNutritionLookupFailed, "food search", fmt.Errorf("food search returned %s", resp.Status))
	}

	var decoded searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNutritionLookupFailed, "decode food search response", err)
	}

	foods := make([]Food, 0, len(decoded.Foods))
	for _, item := range decoded.Foods {
		name := strings.TrimSpace(item.Description)
		if name == "" {
			continue
		}
		foods = append(foods, Food{
			FDCID:        item.FDCID,
			Name:         name,
			CaloriesKcal: energyKcal(item.FoodNutrients),
			Unit:         perServingUnit,
		})
	}
	return foods, nil
}

// energyKcal picks the kcal energy nutrient; absent or unusable values are 0.
func energyKcal(nutrients []foodNutrient) int {
	for _, nutrient := range nutrients {
		if !strings.EqualFold(strings.TrimSpace(nutrient.UnitName), "KCAL") {
			continue
		}
		if nutrient.NutrientNumber != "208" && !strings.HasPrefix(strings.ToLower(nutrient.NutrientName), "energy") {
			continue
		}
		if math.IsNaN(nutrient.Value) || math.IsInf(nutrient.Value, 0) || nutrient.Value <= 0 {
			return 0
		}
		return int(math.Round(nutrient.Value))
	}
	return 0
}
