package domain

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
	"golang.org/x/sync/singleflight"
)

const defaultDirectoryTTL = 5 * time.Minute

// ActivityDirectory caches activity reference data in memory. Concurrent
// misses share one catalog read.
type ActivityDirectory struct {
	catalog ActivityCatalog
	ttl     time.Duration
	clock   func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	byID     map[string]ActivityDefinition
	ordered  []ActivityDefinition
	loadedAt time.Time
}

// NewActivityDirectory builds a directory over catalog. A non-positive ttl
// uses the default.
func NewActivityDirectory(catalog ActivityCatalog, ttl time.Duration) *ActivityDirectory {
	if ttl <= 0 {
		ttl = defaultDirectoryTTL
	}
	return &ActivityDirectory{
		catalog: catalog,
		ttl:     ttl,
		clock:   time.Now,
	}
}

// List returns every activity definition ordered by name.
func (d *ActivityDirectory) List(ctx context.Context) ([]ActivityDefinition, error) {
	if err := d.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.ordered), nil
}

// Get resolves one activity definition. Unknown ids return a not-found error.
func (d *ActivityDirectory) Get(ctx context.Context, activityID string) (ActivityDefinition, error) {
	activityID = strings.TrimSpace(activityID)
	if activityID == "" {
		return ActivityDefinition{}, apperrors.New(apperrors.CodeLogActivityIDEmpty, "activity id is required")
	}
	if err := d.ensureLoaded(ctx); err != nil {
		return ActivityDefinition{}, err
	}
	d.mu.RLock()
	definition, ok := d.byID[activityID]
	d.mu.RUnlock()
	if !ok {
		return ActivityDefinition{}, apperrors.WithMetadata(
			apperrors.CodeActivityNotFound,
			"activity not found",
			map[string]string{"ActivityID": activityID},
		)
	}
	return definition, nil
}

// Invalidate drops the cached catalog.
func (d *ActivityDirectory) Invalidate() {
	d.mu.Lock()
	d.loadedAt = time.Time{}
	d.mu.Unlock()
}

func (d *ActivityDirectory) ensureLoaded(ctx context.Context) error {
	if d == nil || d.catalog == nil {
		return ErrStoreNotConfigured
	}
	if d.fresh() {
		return nil
	}

	_, err, _ := d.group.Do("activities", func() (any, error) {
		if d.fresh() {
			return nil, nil
		}
		definitions, err := d.catalog.ListActivityDefinitions(ctx)
		if err != nil {
			return nil, storageError("list activity definitions", err)
		}
		byID := make(map[string]ActivityDefinition, len(definitions))
		ordered := make([]ActivityDefinition, 0, len(definitions))
		for _, definition := range definitions {
			if _, dup := byID[definition.ID]; dup {
				continue
			}
			byID[definition.ID] = definition
			ordered = append(ordered, definition)
		}
		slices.SortFunc(ordered, func(a, b ActivityDefinition) int {
			return strings.Compare(a.Name, b.Name)
		})

		d.mu.Lock()
		d.byID = byID
		d.ordered = ordered
		d.loadedAt = d.clock()
		d.mu.Unlock()
		return nil, nil
	})
	return err
}

func (d *ActivityDirectory) fresh() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !d.loadedAt.IsZero() && d.clock().Sub(d.loadedAt) < d.ttl
}
