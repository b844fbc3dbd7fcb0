// Package backend declares the storage contracts the service depends on.
// Drivers live in sub-packages: sqlstore for SQLite and Postgres, postgrest for
// a hosted PostgREST endpoint.
package backend

import (
	"context"

	"github.com/starford/vouch/internal/models"
)

// Driver names accepted in configuration.
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverPostgREST = "postgrest"
)

// ParentFilter restricts ListItems by parent reference.
type ParentFilter int

const (
	// AnyParent returns every item of the list.
	AnyParent ParentFilter = iota
	// NoParent returns top-level items only.
	NoParent
	// ParentEquals returns children of ItemQuery.ParentID.
	ParentEquals
)

// ItemQuery selects list items.
type ItemQuery struct {
	ListID   string
	Parent   ParentFilter
	ParentID string
}

// TaxonomySource reads list definitions and their items.
type TaxonomySource interface {
	// ListID resolves a list name to its identifier. It returns an error
	// wrapping apperr.ErrNotFound when the list does not exist.
	ListID(ctx context.Context, name string) (string, error)
	// ListItems returns the items of a list ordered by sort order, then name.
	ListItems(ctx context.Context, q ItemQuery) ([]models.HierarchyItem, error)
}

// ItemCreator resolves free-text names to taxonomy ids, creating rows flagged
// as user generated when no case-insensitive match exists.
type ItemCreator interface {
	GetOrCreateArea(ctx context.Context, name string) (string, error)
	GetOrCreateSubcategory(ctx context.Context, name string) (string, error)
}

// FeedQuery filters the public request feed. Empty fields do not filter.
type FeedQuery struct {
	AreaIDs      []string
	BusinessType string
	Search       string
	Limit        int
}

// RequestStore persists requests and their responses.
type RequestStore interface {
	CreateRequest(ctx context.Context, in models.NewRequest) (*models.Request, error)
	ListFeed(ctx context.Context, q FeedQuery) ([]models.FeedItem, error)
	// FeedItemByToken returns an error wrapping apperr.ErrNotFound when no
	// request carries token.
	FeedItemByToken(ctx context.Context, token string) (*models.FeedItem, error)
	CreateResponse(ctx context.Context, in models.NewResponse) (*models.Response, error)
	ListResponses(ctx context.Context, requestID string) ([]models.Response, error)
	RecentPublic(ctx context.Context, limit int) ([]models.SitemapEntry, error)
}

// Backend is the full contract a driver provides.
type Backend interface {
	TaxonomySource
	ItemCreator
	RequestStore
	Ping(ctx context.Context) error
	Close() error
}

// SeedItem is one taxonomy row written by the seed loader.
type SeedItem struct {
	ID        string
	Name      string
	CodeName  string
	ParentID  string
	SortOrder *int
}

// SeedList is a list definition with its items.
type SeedList struct {
	Name  string
	Items []SeedItem
}

// Seeder upserts curated taxonomy data. Only SQL drivers implement it.
type Seeder interface {
	SeedChecksum(ctx context.Context) (string, error)
	ApplySeed(ctx context.Context, lists []SeedList, checksum string) error
}
