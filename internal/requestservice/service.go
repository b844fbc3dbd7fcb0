// Package requestservice implements recommendation requests and responses on
// top of a request store and the cached taxonomy.
package requestservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/hierarchy"
	"github.com/starford/vouch/internal/models"
	"github.com/starford/vouch/internal/taxonomy"
)

// Feed limits.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Event kinds passed to the Publisher.
const (
	EventRequestCreated  = "request.created"
	EventResponseCreated = "response.created"
)

// Publisher receives domain events, typically the SSE broker.
type Publisher interface {
	PublishRequestEvent(kind string, data map[string]string)
}

// Taxonomy is the part of the taxonomy store the service reads.
type Taxonomy interface {
	Locations(ctx context.Context) (*taxonomy.LocationView, error)
	BusinessTypes(ctx context.Context) ([]models.CategoryOption, error)
}

// NameResolver resolves free text to an id, creating the item if needed.
type NameResolver interface {
	GetOrCreate(ctx context.Context, name string) (string, error)
}

// Service coordinates the request store and the taxonomy.
type Service struct {
	store     backend.RequestStore
	tax       Taxonomy
	areas     NameResolver
	subcats   NameResolver
	events    Publisher
	logger    *slog.Logger
	publicURL string
	newToken  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithPublicURL sets the site origin used in sitemap and share links.
func WithPublicURL(u string) Option {
	return func(s *Service) {
		s.publicURL = strings.TrimRight(u, "/")
	}
}

// NewService creates a request service.
func NewService(store backend.RequestStore, tax Taxonomy, areas, subcats NameResolver, opts ...Option) *Service {
	s := &Service{
		store:    store,
		tax:      tax,
		areas:    areas,
		subcats:  subcats,
		logger:   slog.Default(),
		newToken: newShareToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newShareToken returns 12 hex characters taken from a random UUID.
func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *Service) publish(kind string, data map[string]string) {
	if s.events != nil {
		s.events.PublishRequestEvent(kind, data)
	}
}

// CreateRequest resolves the location and business type, then stores a new
// public request titled "Looking for {type} in {location}".
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.Request, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	areaID, areaName, err := s.resolveLocation(ctx, in)
	if err != nil {
		return nil, err
	}
	catID, subID, typeName, err := s.resolveBusinessType(ctx, in)
	if err != nil {
		return nil, err
	}

	req, err := s.store.CreateRequest(ctx, models.NewRequest{
		ShareToken:    s.newToken(),
		Title:         fmt.Sprintf("Looking for %s in %s", typeName, areaName),
		Context:       strings.TrimSpace(in.Context),
		CategoryID:    catID,
		SubcategoryID: subID,
		AreaID:        areaID,
	})
	if err != nil {
		return nil, err
	}

	s.publish(EventRequestCreated, map[string]string{
		"share_token": req.ShareToken,
		"title":       req.Title,
		"area_id":     req.AreaID,
	})
	return req, nil
}

func (s *Service) resolveLocation(ctx context.Context, in CreateRequestInput) (id, name string, err error) {
	if id = strings.TrimSpace(in.LocationID); id != "" {
		view, err := s.tax.Locations(ctx)
		if err != nil {
			return "", "", err
		}
		for _, it := range view.Items {
			if it.ID == id {
				return it.ID, it.Name, nil
			}
		}
		return "", "", validation.Errors{"location_id": errors.New("unknown location")}
	}

	name = strings.TrimSpace(in.LocationName)
	view, err := s.tax.Locations(ctx)
	if err != nil {
		s.logger.Warn("requests: locations unavailable, creating by name",
			slog.String("name", name), slog.String("error", err.Error()))
	} else if e, ok := hierarchy.ExactMatch(name, view.Entries); ok {
		return e.ID, e.Name, nil
	}
	id, err = s.areas.GetOrCreate(ctx, name)
	if err != nil {
		return "", "", fmt.Errorf("requests: resolve location %q: %w", name, err)
	}
	return id, name, nil
}

func (s *Service) resolveBusinessType(ctx context.Context, in CreateRequestInput) (catID, subID *string, name string, err error) {
	opts, loadErr := s.tax.BusinessTypes(ctx)

	if id := strings.TrimSpace(in.BusinessTypeID); id != "" {
		if loadErr != nil {
			return nil, nil, "", loadErr
		}
		for _, o := range opts {
			if o.ID == id {
				c, sub := optionIDs(o)
				return c, sub, o.Name, nil
			}
		}
		return nil, nil, "", validation.Errors{"business_type_id": errors.New("unknown business type")}
	}

	name = strings.TrimSpace(in.BusinessTypeName)
	if loadErr != nil {
		s.logger.Warn("requests: business types unavailable, creating by name",
			slog.String("name", name), slog.String("error", loadErr.Error()))
	} else if e, ok := hierarchy.ExactMatch(name, hierarchy.OptionEntries(opts)); ok {
		for _, o := range opts {
			if o.ID == e.ID {
				c, sub := optionIDs(o)
				return c, sub, o.Name, nil
			}
		}
	}
	id, err := s.subcats.GetOrCreate(ctx, name)
	if err != nil {
		return nil, nil, "", fmt.Errorf("requests: resolve business type %q: %w", name, err)
	}
	return nil, &id, name, nil
}

// optionIDs maps a chosen option to the request's category and subcategory.
func optionIDs(o models.CategoryOption) (catID, subID *string) {
	if !o.IsSubcategory {
		id := o.ID
		return &id, nil
	}
	id := o.ID
	return models.StringPtr(o.CategoryID()), &id
}

// Filter selects requests for the feed.
type Filter struct {
	LocationID   string `json:"location_id,omitempty"`
	BusinessType string `json:"business_type,omitempty"`
	Search       string `json:"search,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// ListRequests returns public requests newest first. A location filter also
// matches every location below it.
func (s *Service) ListRequests(ctx context.Context, f Filter) ([]models.FeedItem, error) {
	q := backend.FeedQuery{
		BusinessType: strings.TrimSpace(f.BusinessType),
		Search:       strings.TrimSpace(f.Search),
		Limit:        clampLimit(f.Limit),
	}
	if loc := strings.TrimSpace(f.LocationID); loc != "" {
		view, err := s.tax.Locations(ctx)
		if err != nil {
			s.logger.Warn("requests: location hierarchy unavailable, filtering by exact id",
				slog.String("location_id", loc), slog.String("error", err.Error()))
			q.AreaIDs = []string{loc}
		} else {
			q.AreaIDs = view.Descendants.Expand(loc)
		}
	}

	items, err := s.store.ListFeed(ctx, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.FeedItem{}
	}
	return items, nil
}

// RequestDetail is a request with its responses.
type RequestDetail struct {
	Request   models.FeedItem   `json:"request"`
	Responses []models.Response `json:"responses"`
}

// GetRequest returns the request shared under token. A failure to load the
// responses is logged and yields an empty list.
func (s *Service) GetRequest(ctx context.Context, token string) (*RequestDetail, error) {
	item, err := s.store.FeedItemByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListResponses(ctx, item.ID)
	if err != nil {
		s.logger.Error("requests: load responses failed",
			slog.String("share_token", token), slog.String("error", err.Error()))
		responses = nil
	}
	if responses == nil {
		responses = []models.Response{}
	}
	return &RequestDetail{Request: *item, Responses: responses}, nil
}

// CreateResponse validates in and stores it against the request shared under token.
func (s *Service) CreateResponse(ctx context.Context, token string, in ResponseInput) (*models.Response, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	item, err := s.store.FeedItemByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	resp, err := s.store.CreateResponse(ctx, models.NewResponse{
		RequestID:     item.ID,
		ResponderName: in.ResponderName,
		BusinessName:  in.BusinessName,
		Email:         in.Email,
		Instagram:     in.Instagram,
		Website:       in.Website,
		Location:      in.Location,
		Notes:         in.Notes,
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventResponseCreated, map[string]string{
		"share_token": token,
		"request_id":  item.ID,
	})
	return resp, nil
}
