package models

import "time"

// Request status values.
const (
	StatusOpen = "open"
)

// Request is a stored recommendation request.
type Request struct {
	ID            string    `json:"id"`
	ShareToken    string    `json:"share_token"`
	Title         string    `json:"title"`
	Context       string    `json:"context,omitempty"`
	CategoryID    *string   `json:"category_id"`
	SubcategoryID *string   `json:"subcategory_id"`
	AreaID        string    `json:"area_id"`
	IsPublic      bool      `json:"is_public"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewRequest holds the resolved fields needed to insert a request.
type NewRequest struct {
	ShareToken    string
	Title         string
	Context       string
	CategoryID    *string
	SubcategoryID *string
	AreaID        string
}

// FeedItem is a request joined with its taxonomy names and response count.
type FeedItem struct {
	ID                    string    `json:"id"`
	ShareToken            string    `json:"share_token"`
	Title                 string    `json:"title"`
	Context               string    `json:"context,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	Status                string    `json:"status"`
	AreaID                string    `json:"area_id"`
	LocationName          string    `json:"location_name"`
	LocationUserGenerated bool      `json:"location_user_generated"`
	CategoryID            string    `json:"category_id,omitempty"`
	BusinessTypeName      string    `json:"business_type_name,omitempty"`
	SubcategoryID         string    `json:"subcategory_id,omitempty"`
	SubcategoryName       string    `json:"subcategory_name,omitempty"`
	ResponseCount         int       `json:"response_count"`
	RequesterName         string    `json:"requester_name"`
}

// BusinessName returns the most specific business type label.
func (f FeedItem) BusinessName() string {
	if f.SubcategoryName != "" {
		return f.SubcategoryName
	}
	return f.BusinessTypeName
}

// Response is a text recommendation submitted against a request.
type Response struct {
	ID            string    `json:"id"`
	RequestID     string    `json:"request_id"`
	ResponderName string    `json:"responder_name,omitempty"`
	BusinessName  string    `json:"business_name"`
	Email         string    `json:"email,omitempty"`
	Instagram     string    `json:"instagram,omitempty"`
	Website       string    `json:"website,omitempty"`
	Location      string    `json:"location,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	IsGuest       bool      `json:"is_guest"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewResponse holds the validated fields needed to insert a response.
type NewResponse struct {
	RequestID     string
	ResponderName string
	BusinessName  string
	Email         string
	Instagram     string
	Website       string
	Location      string
	Notes         string
}

// SitemapEntry is a public request listed in the sitemap.
type SitemapEntry struct {
	ShareToken   string
	LastModified time.Time
}
