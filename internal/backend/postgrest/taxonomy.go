package postgrest

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/vouch/internal/apperr"
	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/models"
)

const itemColumns = "id,name,code_name,parent_id,list_id,sort_order,metadata"

// ListID implements backend.TaxonomySource.
func (c *Client) ListID(ctx context.Context, name string) (string, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	resp, err := c.request(ctx).
		SetQueryParams(map[string]string{
			"select": "id",
			"name":   "eq." + name,
			"limit":  "1",
		}).
		SetResult(&rows).
		Get("/lists")
	if err := checkResponse("list "+name, resp, err); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("postgrest: list %q: %w", name, apperr.ErrNotFound)
	}
	return rows[0].ID, nil
}

// ListItems implements backend.TaxonomySource.
func (c *Client) ListItems(ctx context.Context, q backend.ItemQuery) ([]models.HierarchyItem, error) {
	params := map[string]string{
		"select":  itemColumns,
		"list_id": "eq." + q.ListID,
		"order":   "sort_order.asc.nullslast,name.asc,id.asc",
	}
	switch q.Parent {
	case backend.NoParent:
		params["parent_id"] = "is.null"
	case backend.ParentEquals:
		params["parent_id"] = "eq." + q.ParentID
	}

	var items []models.HierarchyItem
	resp, err := c.request(ctx).
		SetQueryParams(params).
		SetResult(&items).
		Get("/list_items")
	if err := checkResponse("list items", resp, err); err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ParentID != nil && *items[i].ParentID == "" {
			items[i].ParentID = nil
		}
	}
	return items, nil
}

// GetOrCreateArea calls the get_or_create_area function.
func (c *Client) GetOrCreateArea(ctx context.Context, name string) (string, error) {
	return c.rpcGetOrCreate(ctx, "get_or_create_area", "area_name", name)
}

// GetOrCreateSubcategory calls the get_or_create_subcategory function.
func (c *Client) GetOrCreateSubcategory(ctx context.Context, name string) (string, error) {
	return c.rpcGetOrCreate(ctx, "get_or_create_subcategory", "subcategory_name", name)
}

func (c *Client) rpcGetOrCreate(ctx context.Context, fn, param, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("postgrest: %s: empty name", fn)
	}
	var id string
	resp, err := c.request(ctx).
		SetBody(map[string]string{param: name}).
		SetResult(&id).
		Post("/rpc/" + fn)
	if err := checkResponse(fn, resp, err); err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("postgrest: %s: empty id in response", fn)
	}
	return id, nil
}
