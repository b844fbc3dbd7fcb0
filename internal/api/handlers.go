package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vouch/internal/hierarchy"
	"github.com/starford/vouch/internal/models"
	"github.com/starford/vouch/internal/picker"
	"github.com/starford/vouch/internal/requestservice"
	"github.com/starford/vouch/internal/taxonomy"
)

// Search result limits.
const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// Taxonomy is the part of the taxonomy store the handlers use.
type Taxonomy interface {
	Load(ctx context.Context, kinds ...string) ([]models.HierarchyItem, error)
	Invalidate(ctx context.Context, kinds ...string) error
	InvalidateAll(ctx context.Context) error
	Locations(ctx context.Context) (*taxonomy.LocationView, error)
	BusinessTypes(ctx context.Context) ([]models.CategoryOption, error)
	Children(ctx context.Context, kind, parentID string) ([]models.HierarchyItem, error)
	KnownKinds() []string
}

// Handler holds API route handlers.
type Handler struct {
	tax Taxonomy
	svc *requestservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(tax Taxonomy, svc *requestservice.Service) *Handler {
	return &Handler{tax: tax, svc: svc}
}

// listsParam splits ?lists=a,b. An absent parameter yields nil.
func listsParam(r *http.Request) []string {
	raw := r.URL.Query().Get("lists")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func intParam(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

func searchLimit(r *http.Request) int {
	n := intParam(r, "limit")
	switch {
	case n <= 0:
		return defaultSearchLimit
	case n > maxSearchLimit:
		return maxSearchLimit
	default:
		return n
	}
}

// GetTaxonomy handles GET /api/taxonomy.
//
//	@Summary		Raw list items, every known list when lists is omitted
//	@Tags			taxonomy
//	@Produce		json
//	@Param			lists	query		string	false	"Comma-separated list kinds"
//	@Success		200		{object}	TaxonomyResponse
//	@Failure		503		{object}	errResponse
//	@Router			/taxonomy [get]
func (h *Handler) GetTaxonomy(w http.ResponseWriter, r *http.Request) {
	kinds := listsParam(r)
	if kinds == nil {
		kinds = h.tax.KnownKinds()
	}
	items, err := h.tax.Load(r.Context(), kinds...)
	if err != nil {
		writeError(w, "load taxonomy", err)
		return
	}
	writeJSON(w, http.StatusOK, TaxonomyResponse{Lists: kinds, Items: items})
}

// InvalidateTaxonomy handles POST /api/taxonomy/invalidate.
//
//	@Summary		Drop cached lists, every list when lists is omitted
//	@Tags			taxonomy
//	@Produce		json
//	@Param			lists	query		string	false	"Comma-separated list kinds"
//	@Success		200		{object}	InvalidateResponse
//	@Router			/taxonomy/invalidate [post]
func (h *Handler) InvalidateTaxonomy(w http.ResponseWriter, r *http.Request) {
	kinds := listsParam(r)
	var err error
	if kinds == nil {
		err = h.tax.InvalidateAll(r.Context())
		kinds = []string{}
	} else {
		err = h.tax.Invalidate(r.Context(), kinds...)
	}
	if err != nil {
		writeError(w, "invalidate taxonomy", err)
		return
	}
	writeJSON(w, http.StatusOK, InvalidateResponse{Invalidated: kinds})
}

// ListLocations handles GET /api/locations.
//
//	@Summary		Every location with its parent name
//	@Tags			locations
//	@Produce		json
//	@Success		200		{object}	LocationsResponse
//	@Router			/locations [get]
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	view, err := h.tax.Locations(r.Context())
	if err != nil {
		writeError(w, "list locations", err)
		return
	}
	writeJSON(w, http.StatusOK, LocationsResponse{Items: nonNil(view.Entries)})
}

// SearchLocations handles GET /api/locations/search.
//
//	@Summary		Ranked location matches for a picker query
//	@Tags			locations
//	@Produce		json
//	@Param			q		query		string	false	"Query"
//	@Param			limit	query		int		false	"Maximum matches"
//	@Success		200		{object}	SearchResponse
//	@Router			/locations/search [get]
func (h *Handler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	view, err := h.tax.Locations(r.Context())
	if err != nil {
		writeError(w, "search locations", err)
		return
	}
	writeJSON(w, http.StatusOK, search(r, view.Entries))
}

// LocationDescendants handles GET /api/locations/{id}/descendants.
//
//	@Summary		Every location below id
//	@Tags			locations
//	@Produce		json
//	@Param			id		path		string	true	"Location id"
//	@Success		200		{object}	DescendantsResponse
//	@Failure		404		{object}	errResponse
//	@Router			/locations/{id}/descendants [get]
func (h *Handler) LocationDescendants(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.tax.Locations(r.Context())
	if err != nil {
		writeError(w, "location descendants", err)
		return
	}
	known := false
	for _, it := range view.Items {
		if it.ID == id {
			known = true
			break
		}
	}
	if !known {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, DescendantsResponse{ID: id, Descendants: nonNil(view.Descendants.Of(id))})
}

// LocationChildren handles GET /api/locations/{id}/children.
//
//	@Summary		Direct children of a location in one list, neighbourhoods by default
//	@Tags			locations
//	@Produce		json
//	@Param			id		path		string	true	"Parent id"
//	@Param			list	query		string	false	"List kind"
//	@Success		200		{object}	ChildrenResponse
//	@Router			/locations/{id}/children [get]
func (h *Handler) LocationChildren(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	list := strings.TrimSpace(r.URL.Query().Get("list"))
	if list == "" {
		list = models.KindNeighbourhood
	}
	items, err := h.tax.Children(r.Context(), list, id)
	if err != nil {
		writeError(w, "location children", err)
		return
	}
	writeJSON(w, http.StatusOK, ChildrenResponse{ID: id, List: list, Items: nonNil(items)})
}

// ListBusinessTypes handles GET /api/business-types.
//
//	@Summary		Categories and subcategories as one ordered list
//	@Tags			business-types
//	@Produce		json
//	@Success		200		{object}	BusinessTypesResponse
//	@Router			/business-types [get]
func (h *Handler) ListBusinessTypes(w http.ResponseWriter, r *http.Request) {
	opts, err := h.tax.BusinessTypes(r.Context())
	if err != nil {
		writeError(w, "list business types", err)
		return
	}
	writeJSON(w, http.StatusOK, BusinessTypesResponse{Items: nonNil(opts)})
}

// SearchBusinessTypes handles GET /api/business-types/search.
//
//	@Summary		Ranked business type matches for a picker query
//	@Tags			business-types
//	@Produce		json
//	@Param			q		query		string	false	"Query"
//	@Param			limit	query		int		false	"Maximum matches"
//	@Success		200		{object}	SearchResponse
//	@Router			/business-types/search [get]
func (h *Handler) SearchBusinessTypes(w http.ResponseWriter, r *http.Request) {
	opts, err := h.tax.BusinessTypes(r.Context())
	if err != nil {
		writeError(w, "search business types", err)
		return
	}
	writeJSON(w, http.StatusOK, search(r, hierarchy.OptionEntries(opts)))
}

// search runs the query through a fresh picker so the response carries the
// same state the client-side picker would show.
func search(r *http.Request, entries []hierarchy.Entry) SearchResponse {
	p := picker.New(searchLimit(r))
	p.SetEntries(entries)
	q := r.URL.Query().Get("q")
	_ = p.Type(q)
	return SearchResponse{
		Query:     strings.TrimSpace(q),
		State:     p.State().String(),
		Matches:   nonNil(p.Matches()),
		CreateNew: p.NewName(),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
