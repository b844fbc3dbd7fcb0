package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vouch/internal/requestservice"
)

// ListRequests handles GET /api/requests.
//
//	@Summary		Public requests, newest first
//	@Tags			requests
//	@Produce		json
//	@Param			location_id		query		string	false	"Location id; includes every location below it"
//	@Param			business_type	query		string	false	"Category or subcategory id"
//	@Param			search			query		string	false	"Substring of title or context"
//	@Param			limit			query		int		false	"Page size"
//	@Success		200				{object}	RequestListResponse
//	@Router			/requests [get]
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.ListRequests(r.Context(), requestservice.Filter{
		LocationID:   q.Get("location_id"),
		BusinessType: q.Get("business_type"),
		Search:       q.Get("search"),
		Limit:        intParam(r, "limit"),
	})
	if err != nil {
		writeError(w, "list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, RequestListResponse{Requests: items})
}

// CreateRequest handles POST /api/requests.
//
//	@Summary		Create a recommendation request
//	@Tags			requests
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRequestRequest	true	"Request to create"
//	@Success		201		{object}	models.Request
//	@Failure		400		{object}	errResponse
//	@Router			/requests [post]
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var in CreateRequestRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	req, err := h.svc.CreateRequest(r.Context(), in)
	if err != nil {
		writeError(w, "create request", err)
		return
	}
	w.Header().Set("Location", "/api/requests/"+req.ShareToken)
	writeJSON(w, http.StatusCreated, req)
}

// GetRequest handles GET /api/requests/{token}.
//
//	@Summary		A shared request with its responses
//	@Tags			requests
//	@Produce		json
//	@Param			token	path		string	true	"Share token"
//	@Success		200		{object}	RequestDetail
//	@Failure		404		{object}	errResponse
//	@Router			/requests/{token} [get]
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetRequest(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, "get request", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetShareMeta handles GET /api/requests/{token}/meta.
//
//	@Summary		Link preview metadata for a request page
//	@Tags			requests
//	@Produce		json
//	@Param			token	path		string	true	"Share token"
//	@Success		200		{object}	ShareMeta
//	@Failure		404		{object}	errResponse
//	@Router			/requests/{token}/meta [get]
func (h *Handler) GetShareMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.svc.ShareMeta(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, "share meta", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// CreateResponse handles POST /api/requests/{token}/responses.
//
//	@Summary		Recommend a business for a request
//	@Tags			requests
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string					true	"Share token"
//	@Param			body	body		CreateResponseRequest	true	"Recommendation"
//	@Success		201		{object}	models.Response
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/requests/{token}/responses [post]
func (h *Handler) CreateResponse(w http.ResponseWriter, r *http.Request) {
	var in CreateResponseRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	resp, err := h.svc.CreateResponse(r.Context(), chi.URLParam(r, "token"), in)
	if err != nil {
		writeError(w, "create response", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
