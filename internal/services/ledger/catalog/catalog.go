// Package catalog ships the built-in MET activity definitions.
package catalog

import (
	_ "embed"
	"fmt"
	"math"
	"strings"

	"github.com/louisbranch/kalori/internal/services/ledger/domain"
	"gopkg.in/yaml.v3"
)

//go:embed activities.yaml
var activitiesYAML []byte

type activityFile struct {
	Activities []activityEntry `yaml:"activities"`
}

type activityEntry struct {
	ID   string  `yaml:"id"`
	Name string  `yaml:"name"`
	MET  float64 `yaml:"met"`
}

// Activities returns the built-in activity definitions in file order.
func Activities() ([]domain.ActivityDefinition, error) {
	return Parse(activitiesYAML)
}

// Parse decodes and validates an activities document. Ids must be unique and
// MET values positive.
func Parse(data []byte) ([]domain.ActivityDefinition, error) {
	var file activityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	if len(file.Activities) == 0 {
		return nil, fmt.Errorf("activities catalog is empty")
	}

	seen := make(map[string]struct{}, len(file.Activities))
	definitions := make([]domain.ActivityDefinition, 0, len(file.Activities))
	for i, entry := range file.Activities {
		id := strings.TrimSpace(entry.ID)
		name := strings.TrimSpace(entry.Name)
		if id == "" {
			return nil, fmt.Errorf("activity %d: id is required", i)
		}
		if name == "" {
			return nil, fmt.Errorf("activity %s: name is required", id)
		}
		if math.IsNaN(entry.MET) || math.IsInf(entry.MET, 0) || entry.MET <= 0 {
			return nil, fmt.Errorf("activity %s: met must be positive", id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("activity %s: duplicate id", id)
		}
		seen[id] = struct{}{}
		definitions = append(definitions, domain.ActivityDefinition{ID: id, Name: name, METValue: entry.MET})
	}
	return definitions, nil
}
