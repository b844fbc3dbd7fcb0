package api

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vouch/internal/requestservice"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type sitemapURLSet struct {
	XMLName xml.Name        `xml:"urlset"`
	XMLNS   string          `xml:"xmlns,attr"`
	URLs    []sitemapURLXML `xml:"url"`
}

type sitemapURLXML struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// NewSiteRouter serves the crawler and health check endpoints that live outside /api.
func NewSiteRouter(svc *requestservice.Service, ready Pinger, publicURL string) chi.Router {
	publicURL = strings.TrimRight(publicURL, "/")

	r := chi.NewRouter()
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "User-agent: *\nAllow: /\nDisallow: /api/\nDisallow: /admin/\n\nSitemap: %s/sitemap.xml\n", publicURL)
	})
	r.Get("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		entries := svc.Sitemap(r.Context())
		set := sitemapURLSet{
			XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
			URLs:  make([]sitemapURLXML, len(entries)),
		}
		for i, e := range entries {
			set.URLs[i] = sitemapURLXML{
				Loc:        e.Loc,
				LastMod:    e.LastMod.UTC().Format(time.RFC3339),
				ChangeFreq: e.ChangeFreq,
				Priority:   strconv.FormatFloat(e.Priority, 'f', 1, 64),
			}
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		_, _ = w.Write([]byte(xml.Header))
		if err := xml.NewEncoder(w).Encode(set); err != nil {
			slog.Error("sitemap encode failed", slog.String("error", err.Error()))
		}
	})
	return r
}
