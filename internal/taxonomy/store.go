// Package taxonomy loads hierarchical lists (locations, business types) from a
// backend and keeps them in an expiring cache shared by concurrent callers.
package taxonomy

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/cache"
	"github.com/starford/vouch/internal/hierarchy"
	"github.com/starford/vouch/internal/models"
)

const (
	keyPrefix           = "taxonomy:"
	defaultFetchTimeout = 10 * time.Second
)

// InvalidateHook is called after kinds were dropped from the cache. A nil
// slice means everything was dropped.
type InvalidateHook func(kinds []string)

// Snapshot is one kind's items as held in the cache.
type Snapshot struct {
	Items     []models.HierarchyItem `json:"items"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// Store is the cached taxonomy read path.
//
// Every kind is cached under its own key, so an invalidation issued by any
// process sharing the cache reaches every load that includes the kind.
type Store struct {
	src          backend.TaxonomySource
	cache        cache.Cache[Snapshot]
	options      map[string]ListOptions
	fetchTimeout time.Duration
	logger       *slog.Logger
	hooks        []InvalidateHook
	now          func() time.Time

	group singleflight.Group

	mu  sync.Mutex
	gen uint64 // bumped by every invalidation
}

// Option configures a Store.
type Option func(*Store)

// WithCache replaces the default in-memory cache.
func WithCache(c cache.Cache[Snapshot]) Option {
	return func(s *Store) {
		s.cache = c
	}
}

// WithListOptions overrides entries of the options table.
func WithListOptions(opts map[string]ListOptions) Option {
	return func(s *Store) {
		for k, o := range opts {
			s.options[k] = o
		}
	}
}

// WithFetchTimeout bounds a shared backend fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithLogger sets the logger used for load failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithInvalidateHook registers fn to run after every invalidation.
func WithInvalidateHook(fn InvalidateHook) Option {
	return func(s *Store) {
		s.hooks = append(s.hooks, fn)
	}
}

// WithClock sets the time source used to age cached snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store reading from src.
func NewStore(src backend.TaxonomySource, opts ...Option) *Store {
	s := &Store{
		src:          src,
		cache:        cache.NewMemory[Snapshot](),
		options:      DefaultOptions(),
		fetchTimeout: defaultFetchTimeout,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns every item of the given list kinds, grouped by kind in request
// order and in backend order within a kind. A snapshot older than the
// smallest freshness window among kinds is fetched again.
//
// Concurrent loads of the same kind share one backend fetch. If ctx is
// cancelled the caller returns immediately with ctx.Err(); the fetch keeps
// running on a detached context and still fills the cache.
func (s *Store) Load(ctx context.Context, kinds ...string) ([]models.HierarchyItem, error) {
	kinds = normalizeKinds(kinds)
	if len(kinds) == 0 {
		return nil, nil
	}
	maxAge := ttlFor(s.options, kinds)
	now := s.now()

	parts := make([][]models.HierarchyItem, len(kinds))
	pending := make(map[int]<-chan singleflight.Result)
	for i, kind := range kinds {
		key := cacheKey(kind)
		snap, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("taxonomy: cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		} else if ok && now.Sub(snap.FetchedAt) < maxAge {
			parts[i] = snap.Items
			continue
		}
		pending[i] = s.group.DoChan(key, func() (any, error) {
			return s.fetchAndStore(context.WithoutCancel(ctx), kind)
		})
	}

	// Wait in kind order so the first failing kind is the one reported.
	for i := range kinds {
		ch, ok := pending[i]
		if !ok {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			parts[i] = res.Val.([]models.HierarchyItem)
		}
	}

	var out []models.HierarchyItem
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func (s *Store) fetchAndStore(ctx context.Context, kind string) ([]models.HierarchyItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	s.mu.Lock()
	start := s.gen
	s.mu.Unlock()

	items, err := s.fetchKind(ctx, kind, backend.ItemQuery{})
	if err != nil {
		s.logFailure(err)
		return nil, err
	}

	s.mu.Lock()
	stale := s.gen != start
	s.mu.Unlock()

	// An invalidation raced with this fetch; the result is returned but not cached.
	if stale {
		return items, nil
	}
	key := cacheKey(kind)
	snap := Snapshot{Items: items, FetchedAt: s.now()}
	if err := s.cache.Set(ctx, key, snap, ttlFor(s.options, []string{kind})); err != nil {
		s.logger.Warn("taxonomy: cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return items, nil
}

// fetchKind reads one list. q.ListID is filled in; a zero q selects the whole
// list, narrowed to top-level items when the kind is configured that way.
func (s *Store) fetchKind(ctx context.Context, kind string, q backend.ItemQuery) ([]models.HierarchyItem, error) {
	listID, err := s.src.ListID(ctx, kind)
	if err != nil {
		return nil, classify(kind, err)
	}
	q.ListID = listID
	if q.Parent == backend.AnyParent && s.options[kind].TopLevelOnly {
		q.Parent = backend.NoParent
	}
	items, err := s.src.ListItems(ctx, q)
	if err != nil {
		return nil, classify(kind, err)
	}
	for i := range items {
		items[i].ListKind = kind
		if items[i].ListID == "" {
			items[i].ListID = listID
		}
	}
	return items, nil
}

// Children returns the items of kind whose parent is parentID, for example
// the neighbourhoods of one area. The result is read straight from the
// backend; concurrent identical calls share one fetch.
func (s *Store) Children(ctx context.Context, kind, parentID string) ([]models.HierarchyItem, error) {
	kind = strings.TrimSpace(kind)
	q := backend.ItemQuery{Parent: backend.ParentEquals, ParentID: parentID}
	ch := s.group.DoChan("children:"+kind+"/"+parentID, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		items, err := s.fetchKind(ctx, kind, q)
		if err != nil {
			s.logFailure(err)
		}
		return items, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneItems(res.Val.([]models.HierarchyItem)), nil
	}
}

func (s *Store) logFailure(err error) {
	te, ok := err.(*Error)
	if !ok {
		return
	}
	attrs := []any{slog.String("list", te.List), slog.String("error", te.Err.Error())}
	if te.Kind == NotFound {
		s.logger.Error("taxonomy: list definition missing", attrs...)
		return
	}
	s.logger.Warn("taxonomy: load failed", attrs...)
}

// Invalidate drops the cached snapshots of kinds.
func (s *Store) Invalidate(ctx context.Context, kinds ...string) error {
	kinds = normalizeKinds(kinds)
	if len(kinds) == 0 {
		return nil
	}
	return s.drop(ctx, kinds, kinds)
}

// InvalidateAll drops the snapshot of every kind in the options table.
func (s *Store) InvalidateAll(ctx context.Context) error {
	return s.drop(ctx, s.KnownKinds(), nil)
}

func (s *Store) drop(ctx context.Context, dropped, notify []string) error {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()

	keys := make([]string, len(dropped))
	for i, k := range dropped {
		keys[i] = cacheKey(k)
		s.group.Forget(keys[i])
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return err
	}
	for _, fn := range s.hooks {
		fn(notify)
	}
	return nil
}

// LocationView is the area list with its resolved hierarchy.
type LocationView struct {
	Items       []models.HierarchyItem
	Descendants *hierarchy.Descendants
	Entries     []hierarchy.Entry
}

// Locations loads the area list and resolves its hierarchy. Cycles in parent
// references are logged and otherwise ignored.
func (s *Store) Locations(ctx context.Context) (*LocationView, error) {
	items, err := s.Load(ctx, models.KindArea)
	if err != nil {
		return nil, err
	}
	d := hierarchy.BuildDescendants(items)
	if breaks := d.CycleBreaks(); len(breaks) > 0 {
		s.logger.Warn("taxonomy: cycle in location parents", slog.String("roots", strings.Join(breaks, ",")))
	}
	return &LocationView{
		Items:       items,
		Descendants: d,
		Entries:     hierarchy.LocationEntries(items),
	}, nil
}

// BusinessTypes loads categories and subcategories and flattens them into
// picker options.
func (s *Store) BusinessTypes(ctx context.Context) ([]models.CategoryOption, error) {
	items, err := s.Load(ctx, models.KindCategory, models.KindSubcategory)
	if err != nil {
		return nil, err
	}
	var cats, subs []models.HierarchyItem
	for _, it := range items {
		if it.ListKind == models.KindCategory {
			cats = append(cats, it)
		} else {
			subs = append(subs, it)
		}
	}
	return hierarchy.Flatten(cats, subs), nil
}

// normalizeKinds trims and de-duplicates kinds, keeping the first occurrence.
func normalizeKinds(kinds []string) []string {
	seen := make(map[string]struct{}, len(kinds))
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func cacheKey(kind string) string {
	return keyPrefix + kind
}

// KnownKinds returns the kinds in the options table, sorted.
func (s *Store) KnownKinds() []string {
	out := make([]string, 0, len(s.options))
	for k := range s.options {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// cloneItems returns a slice callers may reorder without touching the cache.
func cloneItems(items []models.HierarchyItem) []models.HierarchyItem {
	if items == nil {
		return nil
	}
	return append([]models.HierarchyItem(nil), items...)
}
