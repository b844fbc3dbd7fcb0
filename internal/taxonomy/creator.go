package taxonomy

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/models"
)

// ErrEmptyName is returned when a get-or-create name is blank.
var ErrEmptyName = errors.New("taxonomy: name is empty")

// Invalidator drops cached lists. *Store implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, kinds ...string) error
}

// Creator resolves a free-text name to an item id, creating the item when it
// does not exist. A repeat of the last successful name is answered without a
// backend call and concurrent calls for the same name share one request.
type Creator struct {
	kind   string
	create func(ctx context.Context, name string) (string, error)
	inv    Invalidator
	logger *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	lastName string
	lastID   string
}

// NewAreaCreator returns a Creator for user contributed locations.
func NewAreaCreator(b backend.ItemCreator, inv Invalidator, logger *slog.Logger) *Creator {
	return newCreator(models.KindArea, b.GetOrCreateArea, inv, logger)
}

// NewSubcategoryCreator returns a Creator for user contributed business types.
func NewSubcategoryCreator(b backend.ItemCreator, inv Invalidator, logger *slog.Logger) *Creator {
	return newCreator(models.KindSubcategory, b.GetOrCreateSubcategory, inv, logger)
}

func newCreator(kind string, fn func(context.Context, string) (string, error), inv Invalidator, logger *slog.Logger) *Creator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Creator{kind: kind, create: fn, inv: inv, logger: logger}
}

// Kind returns the list kind this creator writes to.
func (c *Creator) Kind() string {
	return c.kind
}

// GetOrCreate returns the id for name. Backend errors are returned unchanged.
func (c *Creator) GetOrCreate(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	folded := cases.Fold().String(name)

	c.mu.Lock()
	if c.lastID != "" && c.lastName == folded {
		id := c.lastID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(folded, func() (any, error) {
		id, err := c.create(ctx, name)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.lastName, c.lastID = folded, id
		c.mu.Unlock()

		if c.inv != nil {
			if err := c.inv.Invalidate(ctx, c.kind); err != nil {
				c.logger.Warn("taxonomy: invalidate after create failed",
					slog.String("list", c.kind), slog.String("error", err.Error()))
			}
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
