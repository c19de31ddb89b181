package catalog

import "testing"

func TestActivitiesEmbeddedCatalogIsValid(t *testing.T) {
	t.Parallel()

	definitions, err := Activities()
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if len(definitions) < 10 {
		t.Fatalf("activities = %d, want a populated catalog", len(definitions))
	}
	for _, definition := range definitions {
		if definition.ID == "running" && definition.METValue != 9.8 {
			t.Fatalf("running met = %v, want 9.8", definition.METValue)
		}
	}
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty":        "activities: []",
		"missing id":   "activities:\n  - name: Walk\n    met: 3\n",
		"missing name": "activities:\n  - id: walk\n    met: 3\n",
		"zero met":     "activities:\n  - id: walk\n    name: Walk\n    met: 0\n",
		"duplicate":    "activities:\n  - id: walk\n    name: Walk\n    met: 3\n  - id: walk\n    name: Again\n    met: 4\n",
		"not yaml":     "activities: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
