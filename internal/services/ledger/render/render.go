// Package render produces localized copy for ledger responses.
package render

import (
	"embed"
	"strconv"

	"github.com/louisbranch/kalori/internal/platform/i18n/catalog"
)

//go:embed locales/*/*.yaml
var localesFS embed.FS

var defaultBundle = catalog.MustLoadFromFS(localesFS)

// Motivation tiers by net calories.
const (
	MotivationDeficit      = "deficit"
	MotivationBalanced     = "balanced"
	MotivationSurplusSmall = "surplus_small"
	MotivationSurplusLarge = "surplus_large"
)

// Localizer renders ledger copy for one locale.
type Localizer interface {
	Locale() string
	Motivation(netCalories int) string
	AchievementTitle(threshold int) string
	AchievementUnlocked(threshold int) string
	NetCalories(netCalories int) string
	CoachPrompt(netCalories int) string
}

// MotivationTier classifies net calories: below zero, under 300, under 800,
// or anything above.
func MotivationTier(netCalories int) string {
	switch {
	case netCalories < 0:
		return MotivationDeficit
	case netCalories < 300:
		return MotivationBalanced
	case netCalories < 800:
		return MotivationSurplusSmall
	default:
		return MotivationSurplusLarge
	}
}

// MatchLocale resolves an Accept-Language value to a supported locale.
func MatchLocale(acceptLanguage string) string {
	return defaultBundle.Match(acceptLanguage)
}

// Locales lists the supported locales.
func Locales() []string {
	return defaultBundle.Locales()
}

// For returns the localizer for an Accept-Language value or locale name.
func For(preference string) Localizer {
	locale := defaultBundle.Match(preference)
	return printerLocalizer{locale: locale, bundle: defaultBundle}
}

type printerLocalizer struct {
	locale string
	bundle *catalog.Bundle
}

func (l printerLocalizer) Locale() string {
	return l.locale
}

func (l printerLocalizer) Motivation(netCalories int) string {
	return l.bundle.Printer(l.locale).Sprintf("motivation." + MotivationTier(netCalories))
}

func (l printerLocalizer) AchievementTitle(threshold int) string {
	key := "achievement.title." + strconv.Itoa(threshold)
	if _, ok := l.bundle.Message(l.locale, key); !ok {
		return l.bundle.Printer(l.locale).Sprintf("achievement.generic", threshold)
	}
	return l.bundle.Printer(l.locale).Sprintf(key)
}

func (l printerLocalizer) AchievementUnlocked(threshold int) string {
	return l.bundle.Printer(l.locale).Sprintf("achievement.unlocked", l.AchievementTitle(threshold), threshold)
}

func (l printerLocalizer) NetCalories(netCalories int) string {
	return l.bundle.Printer(l.locale).Sprintf("summary.net", netCalories)
}

// CoachPrompt asks a language model for a short encouraging message in this
// locale. The net value is written without digit grouping.
func (l printerLocalizer) CoachPrompt(netCalories int) string {
	return l.bundle.Printer(l.locale).Sprintf("coach.prompt", strconv.Itoa(netCalories))
}
