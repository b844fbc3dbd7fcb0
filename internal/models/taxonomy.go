// Package models defines the domain types for Vouch.
package models

// List kinds known to the service. Locations form city -> area -> neighbourhood,
// classifications form category -> subcategory.
const (
	KindCity          = "city"
	KindArea          = "area"
	KindNeighbourhood = "neighbourhood"
	KindCategory      = "category"
	KindSubcategory   = "subcategory"
)

// MetaUserGenerated marks items created through get-or-create rather than curated.
const MetaUserGenerated = "user_generated"

// HierarchyItem is a node in either the location or the classification tree.
type HierarchyItem struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	CodeName  *string        `json:"code_name,omitempty"`
	ParentID  *string        `json:"parent_id"`
	ListID    string         `json:"list_id,omitempty"`
	ListKind  string         `json:"list_kind,omitempty"`
	SortOrder *int           `json:"sort_order"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// HasParent reports whether the item references a parent.
func (h HierarchyItem) HasParent() bool {
	return h.ParentID != nil && *h.ParentID != ""
}

// Parent returns the parent id, or "" for top-level items.
func (h HierarchyItem) Parent() string {
	if h.ParentID == nil {
		return ""
	}
	return *h.ParentID
}

// UserGenerated reports whether the item was contributed by a user.
func (h HierarchyItem) UserGenerated() bool {
	v, ok := h.Metadata[MetaUserGenerated].(bool)
	return ok && v
}

// CategoryOption is a flattened category or subcategory annotated with its parent.
type CategoryOption struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ParentID      *string `json:"parent_id"`
	ParentName    *string `json:"parent_name"`
	DisplayName   string  `json:"display_name"`
	IsSubcategory bool    `json:"is_subcategory"`
	SortOrder     *int    `json:"sort_order"`
}

// CategoryID returns the category a selection of this option implies.
func (o CategoryOption) CategoryID() string {
	if o.IsSubcategory {
		if o.ParentID == nil {
			return ""
		}
		return *o.ParentID
	}
	return o.ID
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
