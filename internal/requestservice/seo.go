package requestservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// SitemapLimit caps the number of request pages listed in the sitemap.
const SitemapLimit = 1000

// SitemapURL is one <url> entry.
type SitemapURL struct {
	Loc        string    `json:"loc"`
	LastMod    time.Time `json:"lastmod"`
	ChangeFreq string    `json:"changefreq"`
	Priority   float64   `json:"priority"`
}

// Sitemap lists the home page, the create page and the latest public requests.
// When requests cannot be loaded only the static pages are returned.
func (s *Service) Sitemap(ctx context.Context) []SitemapURL {
	now := time.Now().UTC()
	out := []SitemapURL{
		{Loc: s.publicURL, LastMod: now, ChangeFreq: "daily", Priority: 1},
		{Loc: s.publicURL + "/create", LastMod: now, ChangeFreq: "weekly", Priority: 0.9},
	}
	entries, err := s.store.RecentPublic(ctx, SitemapLimit)
	if err != nil {
		s.logger.Error("requests: sitemap query failed", slog.String("error", err.Error()))
		return out
	}
	for _, e := range entries {
		out = append(out, SitemapURL{
			Loc:        s.RequestURL(e.ShareToken),
			LastMod:    e.LastModified,
			ChangeFreq: "daily",
			Priority:   0.8,
		})
	}
	return out
}

// RequestURL is the public page of a shared request.
func (s *Service) RequestURL(token string) string {
	return s.publicURL + "/request/" + url.PathEscape(token)
}

// ShareMeta is the link preview metadata for a request page.
type ShareMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
}

// ShareMeta builds the link preview for the request shared under token.
func (s *Service) ShareMeta(ctx context.Context, token string) (*ShareMeta, error) {
	item, err := s.store.FeedItemByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	desc := strings.TrimSpace(item.Context)
	if desc == "" {
		business := item.BusinessTypeName
		if business == "" {
			business = "recommendations"
		}
		desc = "Looking for " + business
		if item.LocationName != "" {
			desc += " in " + item.LocationName
		}
	}

	return &ShareMeta{
		Title:       item.Title,
		Description: desc,
		URL:         s.RequestURL(token),
		ImageURL:    fmt.Sprintf("%s/api/og?title=%s", s.publicURL, url.QueryEscape(item.Title)),
	}, nil
}
