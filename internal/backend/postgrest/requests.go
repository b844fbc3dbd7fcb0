package postgrest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/vouch/internal/apperr"
	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/models"
)

const (
	feedView      = "/web_request_feed"
	responsesView = "/web_request_responses"
)

// CreateRequest implements backend.RequestStore.
func (c *Client) CreateRequest(ctx context.Context, in models.NewRequest) (*models.Request, error) {
	body := map[string]any{
		"share_token":    in.ShareToken,
		"title":          in.Title,
		"context":        in.Context,
		"category_id":    in.CategoryID,
		"subcategory_id": in.SubcategoryID,
		"area_id":        in.AreaID,
		"is_public":      true,
		"status":         models.StatusOpen,
	}
	var rows []models.Request
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(body).
		SetResult(&rows).
		Post("/rec_requests")
	if err := checkResponse("create request", resp, err); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("postgrest: create request: empty representation")
	}
	return &rows[0], nil
}

// feedFilters translates q into PostgREST query parameters. Two disjunctions
// cannot share the "or" key, so they are nested under "and".
func feedFilters(q backend.FeedQuery) map[string]string {
	params := map[string]string{
		"select": "*",
		"order":  "created_at.desc,id.asc",
	}
	if len(q.AreaIDs) > 0 {
		params["area_id"] = inList(q.AreaIDs)
	}

	var groups []string
	if q.BusinessType != "" {
		v := quote(q.BusinessType)
		groups = append(groups, "category_id.eq."+v+",subcategory_id.eq."+v)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		v := quote("*" + term + "*")
		groups = append(groups, "title.ilike."+v+",context.ilike."+v)
	}
	switch len(groups) {
	case 1:
		params["or"] = "(" + groups[0] + ")"
	case 2:
		params["and"] = "(or(" + groups[0] + "),or(" + groups[1] + "))"
	}

	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	return params
}

// ListFeed implements backend.RequestStore.
func (c *Client) ListFeed(ctx context.Context, q backend.FeedQuery) ([]models.FeedItem, error) {
	var items []models.FeedItem
	resp, err := c.request(ctx).
		SetQueryParams(feedFilters(q)).
		SetResult(&items).
		Get(feedView)
	if err := checkResponse("list feed", resp, err); err != nil {
		return nil, err
	}
	return items, nil
}

// FeedItemByToken implements backend.RequestStore.
func (c *Client) FeedItemByToken(ctx context.Context, token string) (*models.FeedItem, error) {
	var items []models.FeedItem
	resp, err := c.request(ctx).
		SetQueryParams(map[string]string{
			"select":      "*",
			"share_token": "eq." + token,
			"limit":       "1",
		}).
		SetResult(&items).
		Get(feedView)
	if err := checkResponse("request by token", resp, err); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("postgrest: request %q: %w", token, apperr.ErrNotFound)
	}
	return &items[0], nil
}

// CreateResponse implements backend.RequestStore.
func (c *Client) CreateResponse(ctx context.Context, in models.NewResponse) (*models.Response, error) {
	body := map[string]any{
		"request_id":     in.RequestID,
		"responder_name": in.ResponderName,
		"business_name":  in.BusinessName,
		"email":          in.Email,
		"instagram":      in.Instagram,
		"website":        in.Website,
		"location":       in.Location,
		"notes":          in.Notes,
		"is_guest":       true,
	}
	var rows []models.Response
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(body).
		SetResult(&rows).
		Post("/rec_responses")
	if err := checkResponse("create response", resp, err); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("postgrest: create response: empty representation")
	}
	return &rows[0], nil
}

// ListResponses implements backend.RequestStore.
func (c *Client) ListResponses(ctx context.Context, requestID string) ([]models.Response, error) {
	var out []models.Response
	resp, err := c.request(ctx).
		SetQueryParams(map[string]string{
			"select":     "*",
			"request_id": "eq." + requestID,
			"order":      "created_at.desc,id.asc",
		}).
		SetResult(&out).
		Get(responsesView)
	if err := checkResponse("list responses", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentPublic implements backend.RequestStore.
func (c *Client) RecentPublic(ctx context.Context, limit int) ([]models.SitemapEntry, error) {
	params := map[string]string{
		"select":    "share_token,updated_at",
		"is_public": "eq.true",
		"order":     "created_at.desc",
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	var rows []struct {
		ShareToken string    `json:"share_token"`
		UpdatedAt  time.Time `json:"updated_at"`
	}
	resp, err := c.request(ctx).
		SetQueryParams(params).
		SetResult(&rows).
		Get("/rec_requests")
	if err := checkResponse("recent public", resp, err); err != nil {
		return nil, err
	}
	out := make([]models.SitemapEntry, len(rows))
	for i, r := range rows {
		out[i] = models.SitemapEntry{ShareToken: r.ShareToken, LastModified: r.UpdatedAt}
	}
	return out, nil
}
