package taxonomy

import (
	"time"

	"github.com/starford/vouch/internal/models"
)

// ListOptions controls how one list kind is fetched and cached.
type ListOptions struct {
	TTL time.Duration
	// TopLevelOnly restricts the load to items without a parent.
	TopLevelOnly bool
}

const (
	locationTTL       = 6 * time.Hour
	classificationTTL = 24 * time.Hour
)

// Location and classification kinds, in hierarchy order.
var (
	LocationKinds       = []string{models.KindCity, models.KindArea, models.KindNeighbourhood}
	ClassificationKinds = []string{models.KindCategory, models.KindSubcategory}
)

// DefaultOptions returns the built-in options table. Locations change more
// often than classifications, so they go stale sooner.
func DefaultOptions() map[string]ListOptions {
	return map[string]ListOptions{
		models.KindCity:          {TTL: locationTTL},
		models.KindArea:          {TTL: locationTTL},
		models.KindNeighbourhood: {TTL: locationTTL},
		models.KindCategory:      {TTL: classificationTTL, TopLevelOnly: true},
		models.KindSubcategory:   {TTL: classificationTTL},
	}
}

// ttlFor returns the smallest freshness window among kinds. Kinds missing from
// the table use the location window.
func ttlFor(opts map[string]ListOptions, kinds []string) time.Duration {
	var ttl time.Duration
	for _, k := range kinds {
		d := locationTTL
		if o, ok := opts[k]; ok && o.TTL > 0 {
			d = o.TTL
		}
		if ttl == 0 || d < ttl {
			ttl = d
		}
	}
	return ttl
}
