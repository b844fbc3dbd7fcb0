package api

import (
	"github.com/starford/vouch/internal/hierarchy"
	"github.com/starford/vouch/internal/models"
	"github.com/starford/vouch/internal/requestservice"
)

// TaxonomyResponse carries the raw items of one or more lists.
type TaxonomyResponse struct {
	Lists []string               `json:"lists" validate:"required"`
	Items []models.HierarchyItem `json:"items" validate:"required"`
}

// InvalidateResponse echoes which lists were dropped; empty means all.
type InvalidateResponse struct {
	Invalidated []string `json:"invalidated" validate:"required"`
}

// LocationsResponse lists every location with its parent name resolved.
type LocationsResponse struct {
	Items []hierarchy.Entry `json:"items" validate:"required"`
}

// DescendantsResponse lists every location below ID, depth first.
type DescendantsResponse struct {
	ID          string   `json:"id" example:"london" validate:"required"`
	Descendants []string `json:"descendants" validate:"required"`
}

// ChildrenResponse lists the items of List whose parent is ID.
type ChildrenResponse struct {
	ID    string                 `json:"id" example:"hackney" validate:"required"`
	List  string                 `json:"list" example:"neighbourhood" validate:"required"`
	Items []models.HierarchyItem `json:"items" validate:"required"`
}

// BusinessTypesResponse lists the flattened category options.
type BusinessTypesResponse struct {
	Items []models.CategoryOption `json:"items" validate:"required"`
}

// SearchResponse is what a picker shows for a query: ranked matches, or the
// trimmed query offered as a new item.
type SearchResponse struct {
	Query     string            `json:"query" example:"hack"`
	State     string            `json:"state" example:"showing_matches" validate:"required"`
	Matches   []hierarchy.Entry `json:"matches" validate:"required"`
	CreateNew string            `json:"create_new,omitempty" example:"Painter"`
}

// RequestListResponse wraps the feed.
type RequestListResponse struct {
	Requests []models.FeedItem `json:"requests" validate:"required"`
}

// CreateRequestRequest is the body of POST /api/requests.
type CreateRequestRequest = requestservice.CreateRequestInput

// CreateResponseRequest is the body of POST /api/requests/{token}/responses.
type CreateResponseRequest = requestservice.ResponseInput

// RequestDetail is a request with its responses.
type RequestDetail = requestservice.RequestDetail

// ShareMeta is the link preview of a request page.
type ShareMeta = requestservice.ShareMeta
